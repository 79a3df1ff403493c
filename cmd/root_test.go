package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: false,
		},
		{
			name:    "help flag",
			args:    []string{"--help"},
			wantErr: false,
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(rootCmd)
			rootCmd.SetArgs(tt.args)
			var stdout, stderr bytes.Buffer
			rootCmd.SetOut(&stdout)
			rootCmd.SetErr(&stderr)

			err := rootCmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRootCommandRegistersDomainCommands(t *testing.T) {
	want := []string{"login", "logout", "whoami", "groups", "chat", "open", "polls", "activities", "export", "healthcheck"}
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestCommandsRequireSignIn(t *testing.T) {
	tests := [][]string{
		{"whoami"},
		{"groups", "list"},
		{"chat", "show", "g1"},
		{"polls", "list", "g1"},
		{"activities", "list", "g1"},
		{"export", "--out", "-", "g1"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			c := newCLI(t, "")
			_, stderr, err := c.run(args...)
			if err != errNotSignedIn {
				t.Fatalf("error = %v, want errNotSignedIn", err)
			}
			if !strings.Contains(stderr, "Not signed in") {
				t.Errorf("stderr = %q, want login hint", stderr)
			}
			if n := len(c.backend.Calls()); n != 0 {
				t.Errorf("backend received %d calls, want 0", n)
			}
		})
	}
}

func TestEndpointFlagOverridesEnvironment(t *testing.T) {
	c := newCLI(t, "")
	t.Setenv("CORNER_API_ENDPOINT", "")

	_, _, err := c.run("--endpoint", c.backend.Endpoint(), "login", "--token", "fresh")
	if err == nil {
		t.Fatal("login with unknown user should fail")
	}
	if got := c.backend.CallCount("verifyToken"); got != 1 {
		t.Errorf("verifyToken calls = %d, want 1 via --endpoint", got)
	}
}
