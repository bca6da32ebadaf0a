package bot

import "strings"

const welcomeText = `🤖 **Document filling bot**

This bot fills document templates with your data.

🔐 **To get started:**
` + "`/login <password>`" + ` - sign in

📋 **Commands:**
` + "`/templates`" + ` - list available templates
` + "`/fill`" + ` - fill a document
` + "`/config`" + ` - set up a template's fields
` + "`/help`" + ` - help
` + "`/logout`" + ` - sign out

⚠️ Access is protected by the staff password.`

const helpText = `📖 **How to use the bot**

**Commands:**
- ` + "`/login <password>`" + ` - sign in
- ` + "`/templates`" + ` - list document templates
- ` + "`/fill`" + ` - fill a document
- ` + "`/config`" + ` - set field coordinates

**Filling a document:**
1. Sign in: ` + "`/login your_password`" + `
2. Look at the templates: ` + "`/templates`" + `
3. Start filling: ` + "`/fill`" + `
4. Pick a template from the list
5. Send the data as ` + "`field=value`" + `

**Example data:**
` + "```" + `
name=John Smith
position=Manager
date=01.01.2024
` + "```" + `

**Template setup:**
Use ` + "`/config`" + ` to set the field coordinates of a new template.`

const (
	msgLoginUsage   = "❌ Give the password: `/login <password>`"
	msgLoggedIn     = "✅ Signed in. You can use the bot now."
	msgLoginFailed  = "❌ Wrong password. Access denied."
	msgLoggedOut    = "👋 Signed out."
	msgAccessDenied = "🔐 Access denied. Send /login <password> to sign in."
	msgNoTemplates  = "📄 No document templates found."
)

func templateBullets(names []string) string {
	var b strings.Builder
	b.WriteString("📋 Available templates:\n\n")
	for _, name := range names {
		b.WriteString("• ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func unknownCommand(name string) string {
	return "❓ Unknown command /" + name + ". Send /help for the list."
}
