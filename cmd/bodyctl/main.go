// bodyctl is the operator CLI for a running bodyd: poke actuators,
// inspect perception, enroll faces and rooms, and watch the live
// perception stream.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/noxbotics/go-nox/internal/httpc"
)

var (
	baseURL string
	token   string
)

func main() {
	root := &cobra.Command{
		Use:           "bodyctl",
		Short:         "Control and inspect a running bodyd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "addr", envOr("NOX_ADDR", "http://localhost:8888"), "bodyd base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("NOX_API_TOKEN"), "API token")

	root.AddCommand(
		statusCmd(),
		lookCmd(),
		photoCmd(),
		moveCmd(),
		headCmd(),
		rgbCmd(),
		speakCmd(),
		comboCmd(),
		expressCmd(),
		faceCmd(),
		roomCmd(),
		voiceCmd(),
		watchCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// =============================================================================
// HTTP plumbing
// =============================================================================

func call(method, path string, body any) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = strings.NewReader(string(data))
	}
	req, err := http.NewRequest(method, strings.TrimSuffix(baseURL, "/")+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%s (%d)", e.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return raw, nil
}

func printJSON(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func getAndPrint(path string) error {
	raw, err := call(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return printJSON(raw)
}

func postAndPrint(path string, body any) error {
	raw, err := call(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return printJSON(raw)
}

// =============================================================================
// Commands
// =============================================================================

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show body state, sensors and memory stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/status")
		},
	}
}

func lookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "look",
		Short: "Show the latest perception snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/look")
		},
	}
}

func photoCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Save the latest camera frame as JPEG",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := call(http.MethodGet, "/photo?raw=1", nil)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %d bytes to %s\n", len(raw), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "photo.jpg", "output file")
	return cmd
}

func moveCmd() *cobra.Command {
	var steps, speed int
	cmd := &cobra.Command{
		Use:   "move <action>",
		Short: "Run a named movement (sit, stand, wag_tail, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint("/command", map[string]any{
				"cmd": "move", "action": args[0], "steps": steps, "speed": speed,
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "repetitions (0 = default)")
	cmd.Flags().IntVar(&speed, "speed", 0, "speed 1-100 (0 = default)")
	return cmd
}

func headCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "head <yaw> <roll> <pitch>",
		Short: "Position the head, degrees",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			angles := make([]float64, 3)
			for i, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("bad angle %q", a)
				}
				angles[i] = v
			}
			return postAndPrint("/head", map[string]any{
				"yaw": angles[0], "roll": angles[1], "pitch": angles[2],
			})
		},
	}
	return cmd
}

func rgbCmd() *cobra.Command {
	var mode string
	var bps float64
	cmd := &cobra.Command{
		Use:   "rgb <r> <g> <b>",
		Short: "Set the LED strip",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals := make([]int, 3)
			for i, a := range args {
				v, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("bad channel %q", a)
				}
				vals[i] = v
			}
			return postAndPrint("/rgb", map[string]any{
				"r": vals[0], "g": vals[1], "b": vals[2], "mode": mode, "bps": bps,
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "solid", "solid, breath, boom or bark")
	cmd.Flags().Float64Var(&bps, "bps", 1.0, "cycles per second")
	return cmd
}

func speakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speak <text>",
		Short: "Speak a line through the body's voice",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint("/speak", map[string]any{
				"text": strings.Join(args, " "),
			})
		},
	}
}

func comboCmd() *cobra.Command {
	var speak string
	cmd := &cobra.Command{
		Use:   "combo <action> [action...]",
		Short: "Run actions in order as one unit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint("/combo", map[string]any{
				"actions": args, "speak": speak,
			})
		},
	}
	cmd.Flags().StringVar(&speak, "speak", "", "line to speak alongside")
	return cmd
}

func expressCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "express <emotion>",
		Short: "Play a named emotion (happy, sad, curious, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint("/express", map[string]any{
				"emotion": args[0], "text": text,
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "line to speak alongside")
	return cmd
}

func faceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "face",
		Short: "Face memory operations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List enrolled faces",
			RunE: func(cmd *cobra.Command, args []string) error {
				return getAndPrint("/faces")
			},
		},
		&cobra.Command{
			Use:   "register <name>",
			Short: "Enroll the face currently in frame",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return postAndPrint("/face/register", map[string]any{"name": args[0]})
			},
		},
		&cobra.Command{
			Use:   "forget <name>",
			Short: "Delete every record enrolled under a name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				raw, err := call(http.MethodDelete, "/face/"+url.PathEscape(args[0]), nil)
				if err != nil {
					return err
				}
				return printJSON(raw)
			},
		},
	)
	return cmd
}

func roomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room memory operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "learn <name>",
		Short: "Remember the current view as a named room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint("/room", map[string]any{"name": args[0]})
		},
	})
	return cmd
}

func voiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Voice inbox operations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "inbox",
			Short: "Drain pending transcripts",
			RunE: func(cmd *cobra.Command, args []string) error {
				return getAndPrint("/voice/inbox")
			},
		},
		&cobra.Command{
			Use:   "respond <text>",
			Short: "Speak a reply",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return postAndPrint("/voice/respond", map[string]any{
					"text": strings.Join(args, " "),
				})
			},
		},
	)
	return cmd
}

// =============================================================================
// Watch
// =============================================================================

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream live perception reports over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL, err := websocketURL(baseURL)
			if err != nil {
				return err
			}
			header := http.Header{}
			if token != "" {
				header.Set("Authorization", "Bearer "+token)
			}
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
			if err != nil {
				return fmt.Errorf("connect %s: %w", wsURL, err)
			}
			defer conn.Close()
			fmt.Fprintln(os.Stderr, "connected, streaming (ctrl-c to stop)")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				conn.Close()
			}()

			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return nil
				}
				printJSON(data)
			}
		},
	}
}

// websocketURL rewrites the HTTP base URL to its ws endpoint.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws/brain"
	return u.String(), nil
}
