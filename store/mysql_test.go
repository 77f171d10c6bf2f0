package store

import (
	"context"
	"os"
	"testing"
)

// getTestDSN returns the MySQL test DSN from the environment, or "" if unset.
// Set TEST_MYSQL_DSN to a connection string such as
// "user:pass@tcp(127.0.0.1:3306)/flowgraph_test" to exercise these tests.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Log("MySQL tests skipped: set TEST_MYSQL_DSN to run")
	}
	return dsn
}

func TestMySQLStoreConformance(t *testing.T) {
	dsn := getTestDSN(t)
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	s, err := NewMySQLStore(dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	t.Cleanup(func() {
		keys, _ := s.List(ctx, "graph:")
		for _, k := range keys {
			_ = s.Delete(ctx, k)
		}
	})

	conformance(t, s)
}

func TestMySQLStoreInvalidDSNFails(t *testing.T) {
	dsn := getTestDSN(t)
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	if _, err := NewMySQLStore("not a valid dsn"); err == nil {
		t.Fatal("NewMySQLStore with an invalid DSN should fail")
	}
}

func TestMySQLStoreCloseIsIdempotent(t *testing.T) {
	dsn := getTestDSN(t)
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	s, err := NewMySQLStore(dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}
