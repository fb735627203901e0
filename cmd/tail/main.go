package main

import (
	"context"
	"fmt"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/infrastructure/grpcapi"
	"messenger/projection"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"MESSENGER_GRPC_ADDR,default=localhost:9090"`
	Token         string `env:"MESSENGER_TOKEN,required=true"`
	UserID        int64  `env:"MESSENGER_USER_ID,required=true"`
	// Comma separated group ids to follow, e.g. "3,7"
	GroupIDs string `env:"MESSENGER_GROUP_IDS"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tail error: %v\n", err)
	}
	os.Exit(code)
}

// run opens the push stream and prints every new event until Ctrl+C.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	groups, err := parseGroupIDs(config.GroupIDs)
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(config.ServerAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+config.Token)
	stream, err := grpcapi.NewEventsClient(conn).Subscribe(ctx, &grpcapi.SubscribeRequest{GroupIDs: groups})
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open stream: %w", err)
	}
	log.Info("Connected, listening (Ctrl+C to quit)", "address", config.ServerAddress, "groups", groups)

	timeline := projection.NewTimeline(domain.UserID(config.UserID))
	for {
		pushed, err := stream.Recv()
		if err != nil {
			// Normal exit if the user triggered a shutdown
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		e, err := pushed.Decode()
		if err != nil {
			log.Warn("Skipping event", "event", pushed.Event, "error", err)
			continue
		}
		show(timeline, e)
	}
}

func show(timeline *projection.Timeline, e event.DomainEvent) {
	switch evt := e.(type) {
	case event.ReceiveMessage:
		if timeline.Consume(evt) {
			line(evt.SentAt, evt.SenderName, body(evt.Text, evt.FileRef))
		}
	case event.ReceiveGroupMessage:
		if timeline.Consume(evt) {
			line(evt.SentAt, fmt.Sprintf("%s #%d", evt.SenderName, evt.GroupID), body(evt.Text, evt.FileRef))
		}
	case grpcapi.Subscribed:
		color.Gray.Printf("subscribed as connection %s\n", evt.ConnectionID)
	default:
		color.Warn.Println(fmt.Sprintf("%s %+v", e.Name(), e))
	}
}

func line(at time.Time, who, text string) {
	fmt.Printf("%s %s: %s\n", color.Gray.Sprint(at.Local().Format(time.TimeOnly)), color.Cyan.Sprint(who), text)
}

func body(text *string, file *event.FilePayload) string {
	if file != nil {
		return fmt.Sprintf("[%s] %s %s", file.Kind, file.OriginalName, file.URL)
	}
	return lo.FromPtr(text)
}

func parseGroupIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad group id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
