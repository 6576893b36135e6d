package cli

import (
	"path/filepath"
	"testing"

	"github.com/GathsaraH/PDF-QA-Assistant/session"
)

func TestRootRegistersCommands(t *testing.T) {
	want := []string{"upload", "ask", "history", "docs", "health", "mcp-serve", "config"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Fatalf("command %q not registered", name)
		}
	}

	for _, path := range [][]string{{"docs", "delete"}, {"docs", "use"}, {"config", "init"}, {"config", "show"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[1] {
			t.Fatalf("command %v not registered", path)
		}
	}
}

func TestRootFlags(t *testing.T) {
	for _, name := range []string{"config", "api-url"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Fatalf("missing persistent flag --%s", name)
		}
	}
	if rootCmd.Flags().Lookup("no-ui") == nil {
		t.Fatal("missing --no-ui flag")
	}
	if askCmd.Flags().Lookup("session") == nil || historyCmd.Flags().Lookup("session") == nil {
		t.Fatal("ask and history must accept --session")
	}
	if docsDeleteCmd.Flags().Lookup("yes") == nil {
		t.Fatal("docs delete must accept --yes")
	}
}

func TestResolveSessionID(t *testing.T) {
	env := &appEnv{state: session.NewStateStore(filepath.Join(t.TempDir(), "state.gob"))}

	if _, err := env.resolveSessionID(""); err == nil {
		t.Fatal("expected error without explicit or remembered session")
	}
	if got, err := env.resolveSessionID("explicit"); err != nil || got != "explicit" {
		t.Fatalf("resolveSessionID(explicit) = %q, %v", got, err)
	}

	if err := env.state.Save(session.State{SessionID: "remembered"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got, err := env.resolveSessionID(""); err != nil || got != "remembered" {
		t.Fatalf("resolveSessionID() = %q, %v", got, err)
	}
}
