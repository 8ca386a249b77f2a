// Package cmd contains the node client app.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var url string

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:           "client",
	Short:         "Record and inspect vehicle services on a node",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the client app.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("✗ %s", err)
		os.Exit(1)
	}
}

// =============================================================================

var client = http.Client{
	Timeout: 30 * time.Second,
}

// call performs the request against the node and prints the indented
// response. Failed requests return the error message of the node.
func call(method string, path string, body any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var er struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if err := json.Unmarshal(data, &er); err != nil || er.Error == "" {
			return fmt.Errorf("node responded %d", resp.StatusCode)
		}
		for field, msg := range er.Fields {
			color.Yellow("  %s: %s", field, msg)
		}
		return fmt.Errorf("%d: %s", resp.StatusCode, er.Error)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(out.String())

	return nil
}
