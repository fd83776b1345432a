package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookswap/client"
	"bookswap/projection"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"BOOKSWAP_WS_URL,default=ws://localhost:8080/ws"`
	Token     string `env:"BOOKSWAP_TOKEN,required=true"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The inbox is the local projection of everything the server pushes.
	inbox := projection.NewInbox()

	conn := client.NewConn(client.Config{
		URL:   config.ServerURL,
		Token: config.Token,
	}, log, inbox)
	conn.OnStateChange(func(s client.State) {
		log.Info(fmt.Sprintf("Push channel %s", s))
	})

	go func() {
		for snapshot := range conn.Snapshots {
			log.Info(fmt.Sprintf("%d pending exchange request(s) awaiting your decision",
				len(snapshot.Requests)))
		}
	}()

	err := conn.Run(ctx)

	// Render whatever arrived during the session before exiting.
	printInbox(inbox)

	if err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

func printInbox(inbox *projection.Inbox) {
	notifications := inbox.All()
	if len(notifications) == 0 {
		fmt.Println("No notifications received.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Event", "Kind", "Request", "Status", "Read", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, n := range notifications {
		read := "no"
		if n.Read {
			read = "yes"
		}
		table.Append([]string{
			n.EventID.String()[:8],
			string(n.Kind),
			n.RequestID.String()[:8],
			string(n.Status),
			read,
			n.Message,
		})
	}
	table.Render()
}
