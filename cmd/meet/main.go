// Package main runs a headless room client: it mints a token, joins a room,
// publishes synthetic media, keeps the credential fresh and logs the grid
// arrangement as participants come and go.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/team-telnyx/telnyx-meet-sub000/config"
	"github.com/team-telnyx/telnyx-meet-sub000/internal/devices"
	"github.com/team-telnyx/telnyx-meet-sub000/internal/layout"
	"github.com/team-telnyx/telnyx-meet-sub000/internal/room"
	rtcsignal "github.com/team-telnyx/telnyx-meet-sub000/internal/signal"
	"github.com/team-telnyx/telnyx-meet-sub000/internal/tokens"
)

const (
	gridAspectRatio = 16.0 / 9.0
	gridMaxRows     = 3
	gridMinGap      = 8
	gridChrome      = 90
)

func main() {
	var (
		roomID   = flag.String("room", "", "room id to join (required)")
		name     = flag.String("name", "headless", "display name")
		apiURL   = flag.String("api", "http://localhost:8080", "token API base URL")
		width    = flag.Float64("width", 1280, "virtual viewport width")
		height   = flag.Float64("height", 720, "virtual viewport height")
		interval = flag.Duration("report", 10*time.Second, "grid report interval")
	)
	flag.Parse()
	if *roomID == "" {
		fmt.Fprintln(os.Stderr, "usage: meet -room <id> [-name <name>]")
		os.Exit(2)
	}

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signalContext()
	defer stop()

	identity := uuid.New().String()
	client := tokens.NewClient(*apiURL)
	pair, err := client.Mint(ctx, *roomID, identity, *name)
	if err != nil {
		logger.Fatal("mint token", zap.Error(err))
	}

	localContext, _ := json.Marshal(map[string]any{
		"name":                 *name,
		"can_receive_messages": true,
	})

	transport := rtcsignal.NewTransport(rtcsignal.Options{
		URL:     cfg.Signal.URL,
		ICEUrls: cfg.WebRTC.ICEUrls,
		Logger:  logger,
	})
	session := room.NewSession(transport, identity, localContext, logger)
	session.SetNotifier(loggingNotifier{logger})
	session.SetDisconnectedHandler(func(reason room.DisconnectReason) {
		logger.Info("session disconnected", zap.String("reason", string(reason)))
		stop()
	})

	if err := session.Connect(ctx, *roomID, pair.AccessToken); err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer session.Disconnect(room.ReasonUserInitiated)

	// Publish synthetic media so the far end has something to mix.
	provider := devices.NewStaticProvider()
	media, err := provider.AcquireMedia(devices.Constraints{Audio: true, Video: true})
	if err != nil {
		logger.Fatal("acquire media", zap.Error(err))
	}
	if err := session.AddStream(room.StreamKeySelf, media.Audio, media.Video); err != nil {
		logger.Fatal("publish", zap.Error(err))
	}
	go keepAlive(ctx, media.Audio)

	// Keep the short-lived credential fresh while connected.
	refresher := tokens.NewRefresher(session, client, pair.RefreshToken,
		time.Duration(pair.ExpiresInSec)*time.Second,
		time.Duration(cfg.Token.RefreshLeadSec)*time.Second, logger)
	go refresher.Run(ctx)

	grid := layout.NewGrid(gridAspectRatio, gridMaxRows, gridMinGap, gridChrome)
	grid.Resize(*width, *height)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("leaving room")
			return
		case <-ticker.C:
			reportGrid(logger, session, grid)
		}
	}
}

func reportGrid(logger *zap.Logger, session *room.Session, grid *layout.Grid) {
	sn := session.Snapshot()
	if sn.Status != room.StatusConnected {
		return
	}
	grid.SetTiles(sn.ActivityOrder)
	arr := grid.Arrange()
	logger.Info("grid",
		zap.Int("participants", len(sn.Participants)),
		zap.Strings("tiles", arr.Tiles),
		zap.Int("page", arr.Page),
		zap.Int("pages", arr.PageCount),
		zap.Int("rows", arr.Solution.Rows),
		zap.Int("cols", arr.Solution.Cols),
		zap.Float64("tile_w", arr.Solution.ItemWidth),
		zap.Float64("tile_h", arr.Solution.ItemHeight),
		zap.String("speaker", sn.DominantSpeakerID),
		zap.String("presenter", sn.PresenterID),
		zap.Int("unread", sn.UnreadCount),
	)
}

// keepAlive pushes silence into the published audio track so the publication
// is never reaped as idle.
func keepAlive(ctx context.Context, audio room.Track) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := devices.WriteSilence(audio); err != nil {
				return
			}
		}
	}
}

type loggingNotifier struct {
	logger *zap.Logger
}

func (n loggingNotifier) Notify(notice room.Notice) {
	n.logger.Info("notice",
		zap.String("level", string(notice.Level)),
		zap.String("title", notice.Title),
		zap.String("body", notice.Body),
	)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
