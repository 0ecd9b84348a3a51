// tinysa talks to a tinySA spectrum analyzer over its USB serial shell.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/SSSOC-CAN/tinysa-plugin/cfg"
	"github.com/SSSOC-CAN/tinysa-plugin/tinysa"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	portName   string
	backend    string
	baudRate   int
	timeout    time.Duration
	configPath string
	logLevel   string
	outputPath string
)

var rootCmd = &cobra.Command{
	Use:   "tinysa",
	Short: "Send shell commands to a tinySA spectrum analyzer",
	Long: `tinysa opens the tinySA USB serial port, validates commands against the
known command table and prints the reply with the echo and prompt removed.

Ports may be serial device paths or tcp://host:port for a serial bridge.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(lvl).With().Timestamp().Logger()
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and flag tinySA devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := tinysa.FindPorts()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PORT\tVID:PID\tSERIAL\tTINYSA")
		for _, p := range ports {
			ids := "-"
			if p.IsUSB {
				ids = p.VID + ":" + p.PID
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", p.Name, ids, p.SerialNumber, p.IsTinySA)
		}
		return w.Flush()
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List known shell commands and the arguments they accept",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := tinysa.DefaultRegistry()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMMAND\tACCEPTS\tREPLY\tUSAGE")
		for _, name := range reg.Names() {
			d, _ := reg.Lookup(name)
			accepts := "not implemented"
			if !d.Unimplemented {
				accepts = d.Domain.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, accepts, d.Reply, d.Usage)
		}
		return w.Flush()
	},
}

var sendCmd = &cobra.Command{
	Use:   "send [flags] <command> [arg...]",
	Short: "Validate and send one command, print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// reject before touching the port
		d, ok := tinysa.DefaultRegistry().Lookup(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", tinysa.ErrUnknownCommand, args[0])
		}
		if _, err := d.Validate(args[1:]...); err != nil {
			return err
		}
		client, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer()
		payload, err := client.Execute(args[0], args[1:]...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if d.Reply == tinysa.ReplyBinary {
			_, err = out.Write(payload)
			return err
		}
		text := strings.TrimRight(strings.ReplaceAll(string(payload), "\r", ""), "\n")
		if text != "" {
			fmt.Fprintln(out, text)
		}
		return nil
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Write the raw screen capture to a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return errors.New("an output file is required (-o)")
		}
		client, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer()
		payload, err := client.Capture()
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, payload, 0644); err != nil {
			return err
		}
		log.Info().Str("file", outputPath).Int("bytes", len(payload)).Msg("capture written")
		return nil
	},
}

// loadConfig merges the optional config file with flags; flags that were set win
func loadConfig() (*cfg.Config, error) {
	c := &cfg.Config{}
	if configPath != "" {
		loaded, err := cfg.InitConfigFromPath(configPath)
		if err != nil {
			return nil, err
		}
		c = loaded
	}
	flags := rootCmd.PersistentFlags()
	if flags.Changed("port") || c.Port == "" {
		c.Port = portName
	}
	if flags.Changed("backend") {
		c.Backend = backend
	}
	if flags.Changed("baud") {
		c.BaudRate = baudRate
	}
	if flags.Changed("timeout") {
		c.ReadTimeoutMs = timeout.Milliseconds()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func connect() (*tinysa.Client, func() error, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if c.Port == "" {
		name, ok, err := tinysa.FirstTinySA()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, errors.New("no tinySA found, pass --port")
		}
		log.Debug().Str("port", name).Msg("using detected tinySA")
		c.Port = name
	}
	conn, err := tinysa.Open(c.Port, c.ReadTimeout(), c.ConnectionOptions(log.Logger)...)
	if err != nil {
		return nil, nil, err
	}
	return tinysa.NewClient(conn, log.Logger), conn.Close, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "serial port or tcp://host:port (default: first detected tinySA)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", tinysa.BackendSerial, "transport backend: serial, tarm or tcp")
	rootCmd.PersistentFlags().IntVar(&baudRate, "baud", tinysa.DefaultBaudRate, "serial baud rate")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", tinysa.DefaultTimeout, "inactivity timeout per read")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	captureCmd.Flags().StringVarP(&outputPath, "output", "o", "", "file to write the capture to")
	// flags go before the command name so negative arguments like -70 stay positional
	sendCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(portsCmd, commandsCmd, sendCmd, captureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
