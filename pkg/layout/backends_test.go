package layout

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"
)

// Backend tests run against real servers when their environment variables are set:
//
//	FORMSTENCIL_TEST_REDIS_ADDR=localhost:6379
//	FORMSTENCIL_TEST_POSTGRES_DSN=postgres://user:pw@localhost:5432/db
//	FORMSTENCIL_TEST_MYSQL_DSN=user:pw@tcp(localhost:3306)/db
func openBackend(t *testing.T, backend string) Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var o Options
	switch backend {
	case BackendRedis:
		addr := os.Getenv("FORMSTENCIL_TEST_REDIS_ADDR")
		if addr == "" {
			t.Skip("FORMSTENCIL_TEST_REDIS_ADDR not set")
		}
		o = Options{Backend: backend, Redis: RedisOptions{Addr: addr, Prefix: "formstencil:test:" + t.Name() + ":"}}
	case BackendPostgres:
		o = Options{Backend: backend, DSN: os.Getenv("FORMSTENCIL_TEST_POSTGRES_DSN")}
	case BackendMySQL:
		o = Options{Backend: backend, DSN: os.Getenv("FORMSTENCIL_TEST_MYSQL_DSN")}
	}
	if backend != BackendRedis && o.DSN == "" {
		t.Skipf("no DSN for %s", backend)
	}

	s, closeFn, err := Open(ctx, o)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", backend, err)
	}
	t.Cleanup(func() { closeFn() })
	return s
}

func TestBackendsRoundTrip(t *testing.T) {
	for _, backend := range []string{BackendRedis, BackendPostgres, BackendMySQL} {
		t.Run(backend, func(t *testing.T) {
			s := openBackend(t, backend)
			ctx := context.Background()
			name := "roundtrip-" + time.Now().Format("150405.000000") + ".png"

			if _, ok := s.Load(ctx, name); ok {
				t.Fatalf("Load(%q) before Save: ok = true", name)
			}

			want := sampleLayout()
			want.TemplateName = name
			if err := s.Save(ctx, name, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, ok := s.Load(ctx, name)
			if !ok {
				t.Fatal("Load() ok = false after Save")
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Load() = %+v, want %+v", got, want)
			}

			want.Fields = map[string]FieldSpec{"replaced": {X: 5, Y: 6}}
			if err := s.Save(ctx, name, want); err != nil {
				t.Fatalf("second Save() error = %v", err)
			}
			got, _ = s.Load(ctx, name)
			if !reflect.DeepEqual(got.FieldNames(), []string{"replaced"}) {
				t.Errorf("after overwrite FieldNames() = %v", got.FieldNames())
			}
		})
	}
}
