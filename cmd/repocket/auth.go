package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"repocket/pkg/pocket"
)

var authCmd = &cobra.Command{
	Use:   "auth <consumer-key>",
	Short: "Obtain and store a Pocket access token",
	Long: `Run the Pocket OAuth flow for the given consumer key. A browser window
opens for the approval step; once approved, press Enter to finish. The
resulting token is written to the credentials file used by sync.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		printError("%v", err)
		return err
	}

	consumerKey := args[0]
	flow := pocket.NewAuthFlow(consumerKey)
	ctx := cmd.Context()

	token, err := flow.RequestToken(ctx)
	if err != nil {
		printError("requesting token: %v", err)
		return err
	}

	authURL := flow.AuthorizeURL(token)
	fmt.Printf("Authorize repocket in your browser:\n\n  %s\n\n", authURL)
	if err := openBrowser(authURL); err != nil {
		fmt.Println("(could not open a browser automatically)")
	}

	fmt.Print("Press Enter once you have approved access... ")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

	user, err := flow.ExchangeToken(ctx, token)
	if err != nil {
		printError("exchanging token: %v", err)
		return err
	}

	creds := pocket.Credentials{ConsumerKey: consumerKey, AccessToken: user.AccessToken}
	if err := os.MkdirAll(filepath.Dir(cfg.CredentialsPath), 0o755); err != nil {
		printError("creating credentials directory: %v", err)
		return err
	}
	if err := creds.Save(cfg.CredentialsPath); err != nil {
		printError("saving credentials: %v", err)
		return err
	}

	fmt.Printf("Authenticated as %s. Credentials written to %s\n", user.Username, cfg.CredentialsPath)
	return nil
}

// openBrowser launches the platform's URL handler.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
