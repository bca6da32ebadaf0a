package session

import (
	"fmt"
	"strings"
)

const (
	msgAccessDenied    = "🔐 Access denied. Send /login <password> to sign in."
	msgNoTemplates     = "📄 No document templates found."
	msgPickTemplate    = "Send the template number or part of its name:"
	msgNoMatch         = "❌ Template not found. Try again."
	msgUnparseable     = "❌ Could not read the data. Use one `field=value` per line."
	msgIdleHint        = "Send /fill to fill a document or /config to set up a template."
	msgRenderFailed    = "❌ Could not fill the document."
	msgSendFailed      = "❌ The document was filled but could not be sent."
	msgConfigSaveError = "❌ Could not save the configuration."
)

func templateList(names []string) string {
	var b strings.Builder
	b.WriteString("📋 Choose a template to fill:\n\n")
	for i, name := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	b.WriteString("\n")
	b.WriteString(msgPickTemplate)
	return b.String()
}

func noMatch(suggestions []string) string {
	if len(suggestions) == 0 {
		return msgNoMatch
	}
	return msgNoMatch + " Did you mean: " + strings.Join(suggestions, ", ") + "?"
}

func layoutMissing(name string) string {
	return fmt.Sprintf("❌ No field layout for %q.\nUse /config to set up its fields.", name)
}

func fieldPrompt(name, fields string) string {
	return fmt.Sprintf("✅ Template: %s\n\n📝 Fields:\n%s\nSend the data as:\nfield1=value1\nfield2=value2\n\nOne field per line.", name, fields)
}

func templateGone(name string) string {
	return fmt.Sprintf("❌ Template %q is no longer available.", name)
}

func fillCaption(name string, filled []string) string {
	caption := "✅ Document filled.\n\n📄 Template: " + name
	if len(filled) > 0 {
		caption += "\n📝 Fields: " + strings.Join(filled, ", ")
	} else {
		caption += "\n📝 No layout field matched the data."
	}
	return caption
}

func configPrompt(example string) string {
	return "⚙️ **Template field setup**\n\nSend the layout as JSON:\n\n```json\n" + example + "\n```"
}

func configInvalid(err error) string {
	return "❌ Invalid configuration: " + err.Error()
}

func configSaved(name string, known bool) string {
	s := fmt.Sprintf("✅ Configuration for %q saved.", name)
	if !known {
		s += fmt.Sprintf("\n⚠️ No template file named %q exists yet.", name)
	}
	return s
}
