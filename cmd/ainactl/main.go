// ainactl is a small HTTP client for the AINA daemon, handy for desktop
// scripting and debugging without a rendering surface attached.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	addr    string
	model   string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ainactl",
	Short: "Control the AINA companion daemon",
	Long: `ainactl talks to a running AINA daemon over its HTTP API:
create sessions, send turns, inspect history and emotes, and switch the
generation model.`,
	SilenceUsage: true,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]string{}
		if model != "" {
			payload["model"] = model
		}
		return doJSON(http.MethodPost, "/api/sessions", payload)
	},
}

var turnCmd = &cobra.Command{
	Use:   "turn <session-id> <text>",
	Short: "Send a user turn and print the result",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		return doJSON(http.MethodPost, "/api/sessions/"+args[0]+"/turns", map[string]string{"text": text})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <session-id>",
	Short: "Clear a session's history (and optionally re-arm its model)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]string{}
		if model != "" {
			payload["model"] = model
		}
		return doJSON(http.MethodPost, "/api/sessions/"+args[0]+"/reset", payload)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print a session's live transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doJSON(http.MethodGet, "/api/sessions/"+args[0]+"/turns", nil)
	},
}

var emotesCmd = &cobra.Command{
	Use:   "emotes",
	Short: "List the emote registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return doJSON(http.MethodGet, "/api/emotes", nil)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the daemon configuration snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return doJSON(http.MethodGet, "/api/config", nil)
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model <model>",
	Short: "Select the generation model for future sessions",
	Long: `Select the generation model used by sessions created or reset from
now on. Live sessions keep their current model until reset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doJSON(http.MethodPut, "/api/config/model", map[string]string{"model": args[0]})
	},
}

func doJSON(method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, strings.TrimRight(addr, "/")+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		pretty.Write(data)
	}
	fmt.Println(pretty.String())

	if resp.StatusCode >= 400 {
		return fmt.Errorf("daemon answered %s", resp.Status)
	}
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "daemon base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	sessionNewCmd.Flags().StringVar(&model, "model", "", "generation model for the new session")
	resetCmd.Flags().StringVar(&model, "model", "", "generation model to re-arm the session with")

	sessionCmd.AddCommand(sessionNewCmd)
	configCmd.AddCommand(setModelCmd)
	rootCmd.AddCommand(sessionCmd, turnCmd, resetCmd, historyCmd, emotesCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
