package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/corner/internal"
	"github.com/iksnae/corner/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cli runs rootCmd against a fake backend with an isolated data directory
type cli struct {
	t       *testing.T
	backend *testutil.FakeBackend
	dataDir string
	stdin   string
}

func newCLI(t *testing.T, token string) *cli {
	t.Helper()
	c := &cli{
		t:       t,
		backend: testutil.NewFakeBackend(t),
		dataDir: testutil.CreateTempDir(t),
	}
	testutil.CreateSQLiteFixture(t, filepath.Join(c.dataDir, internal.CredentialDBName), token)

	t.Setenv("CORNER_API_ENDPOINT", c.backend.Endpoint())
	t.Setenv("CORNER_DATA_DIR", c.dataDir)
	t.Setenv("CORNER_LOG_LEVEL", "error")
	t.Setenv("CORNER_POLL_INTERVAL", "1h")
	for _, key := range []string{"CORNER_REQUEST_TIMEOUT", "CORNER_SHARE_BASE_URL"} {
		t.Setenv(key, "")
	}
	if token != "" {
		c.backend.Respond(internal.VerifyAction, testutil.VerifiedUser("ann@x.com", "Ann"))
	}
	return c
}

// run executes the command line and returns stdout, stderr and the error
func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(c.dataDir, "config.yaml")}, args...))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(c.stdin))

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// storedToken reads the credential the CLI left behind
func (c *cli) storedToken() string {
	c.t.Helper()
	store, err := internal.OpenTokenStore(filepath.Join(c.dataDir, internal.CredentialDBName))
	if err != nil {
		c.t.Fatalf("OpenTokenStore() error = %v", err)
	}
	defer store.Close()
	token, err := store.LoadToken()
	if err != nil {
		c.t.Fatalf("LoadToken() error = %v", err)
	}
	return token
}

// resetFlags puts every flag back to its default between runs of the shared rootCmd
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
