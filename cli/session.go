package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mobile-next/streamkit/channel"
	"github.com/mobile-next/streamkit/client"
	"github.com/mobile-next/streamkit/session"
	"github.com/mobile-next/streamkit/types"
)

const startTimeout = 5 * time.Minute

// dialClient opens the queueing channel and wraps it in a client whose
// session dialer reuses the same endpoint and credentials.
func dialClient() (*client.Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured; pass --endpoint or set it in config.ini")
	}

	header := http.Header{}
	if token := apiToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ch, err := channel.Dial(endpoint+"/client", header)
	if err != nil {
		return nil, err
	}

	return client.New(ch, func(path, token string) (channel.Channel, error) {
		return channel.Dial(endpoint+path+"?token="+url.QueryEscape(token), header)
	}), nil
}

// withSession starts a session with the given config, runs fn, and tears
// everything down.
func withSession(config types.SessionConfig, fn func(s *session.Session) error) error {
	c, err := dialClient()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	s, err := c.StartSession(ctx, &config)
	if err != nil {
		return err
	}
	defer func() { _ = s.End() }()

	return fn(s)
}

// tapConfig is the session config for commands that play actions: playback
// requires the recorder, so it is always enabled regardless of --record.
func tapConfig() types.SessionConfig {
	config := sessionConfig()
	config.Record = true
	return config
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Start a session and print the device info",
	Long:  `Requests a session from the streaming service, waits until the remote device is ready, and prints its device info.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(sessionConfig(), func(s *session.Session) error {
			printJson(s.Device())
			return nil
		})
	},
}

var tapCmd = &cobra.Command{
	Use:   "tap [x%,y%]",
	Short: "Tap the remote screen at a normalized position",
	Long:  `Starts a session and taps at the given position. Coordinates are percentages, e.g. "50,50" for the screen center.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parts := strings.Split(args[0], ",")
		if len(parts) != 2 {
			return fmt.Errorf("invalid position format, expected 'x,y', got %q", args[0])
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errX != nil || errY != nil {
			return fmt.Errorf("invalid position values, x and y must be numbers")
		}

		return withSession(tapConfig(), func(s *session.Session) error {
			result, err := s.Tap(types.Pos(x/100, y/100))
			if err != nil {
				return err
			}
			printJson(result)
			return nil
		})
	},
}

var typeCmd = &cobra.Command{
	Use:   "type [text]",
	Short: "Type text on the remote device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(sessionConfig(), func(s *session.Session) error {
			return s.Type(args[0])
		})
	},
}

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a screenshot of the remote device",
	Long:  `Starts a session and saves a screenshot. Use "-o -" to write the raw image to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(sessionConfig(), func(s *session.Session) error {
			data, mimeType, err := s.Screenshot()
			if err != nil {
				return err
			}

			if screenshotOutputPath == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}

			path := screenshotOutputPath
			if path == "" {
				path = "screenshot" + extensionFor(mimeType)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to save screenshot: %w", err)
			}
			fmt.Println(path)
			return nil
		})
	},
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	default:
		return ".png"
	}
}

func init() {
	for _, cmd := range []*cobra.Command{connectCmd, tapCmd, typeCmd, screenshotCmd} {
		cmd.Flags().StringVar(&configPlatform, "platform", "", "device platform (ios or android)")
		cmd.Flags().StringVar(&configDevice, "device", "", "device model to request")
		cmd.Flags().StringVar(&configProxy, "proxy", "", "proxy mode (direct or intercept)")
		cmd.Flags().BoolVar(&configRecord, "record", false, "enable action recording")
		cmd.Flags().BoolVar(&configDebug, "debug", false, "enable session debug mode")
		rootCmd.AddCommand(cmd)
	}

	screenshotCmd.Flags().StringVarP(&screenshotOutputPath, "output", "o", "", "output path, or - for stdout")
}
