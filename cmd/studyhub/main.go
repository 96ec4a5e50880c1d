package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbeoliero/kit/log"

	"github.com/prim5v/studyhub-frontend/internal/client"
	"github.com/prim5v/studyhub-frontend/internal/config"
	"github.com/prim5v/studyhub-frontend/internal/localstate"
	"github.com/prim5v/studyhub-frontend/internal/protocol"
	"github.com/prim5v/studyhub-frontend/internal/transport"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "config file path")
		email      = flag.String("email", "", "login email (omit to resume the stored session)")
		password   = flag.String("password", "", "login password")
	)
	flag.Parse()

	ctx := context.TODO()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.CtxWarn(ctx, "config load failed, using defaults: %v", err)
		cfg = config.Default()
	}

	local, err := localstate.NewStore(cfg.State.Dir)
	if err != nil {
		log.CtxError(ctx, "failed to open local state: %v", err)
		panic(err)
	}

	sess, err := client.New(cfg, local)
	if err != nil {
		log.CtxError(ctx, "failed to create session: %v", err)
		panic(err)
	}
	defer sess.Close()

	if err := sess.Connect(ctx); err != nil {
		log.CtxError(ctx, "failed to connect: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "channel connected: %s", cfg.Server.WSEndpoint())

	if *email != "" {
		err = sess.Login(ctx, *email, *password)
	} else {
		err = sess.Resume(ctx)
	}
	if err != nil {
		log.CtxError(ctx, "session not established: %v", err)
		panic(err)
	}

	user := sess.User()
	log.CtxInfo(ctx, "logged in: user_id=%d, name=%s", user.UserId, user.Name)

	if !local.IntroPlayed() {
		fmt.Println("Welcome to StudyHub! Share notes, join study groups, chat with classmates.")
		if err := local.MarkIntroPlayed(); err != nil {
			log.CtxWarn(ctx, "mark intro failed: %v", err)
		}
	}

	if err := sess.FetchConversations(ctx); err != nil {
		log.CtxWarn(ctx, "conversation fetch failed: %v", err)
	}

	for _, conv := range sess.Conversations() {
		fmt.Printf("[%s] %s — %s (unread %d)\n", conv.Kind, conv.DisplayName, conv.LastMessage, conv.UnreadCount)
	}

	// Tail live traffic until interrupted
	scope := sess.Conn().NewScope()
	defer scope.Close()

	scope.On(protocol.EvNewMessage, func(_ *protocol.Frame, payload interface{}) {
		if msg, ok := payload.(*protocol.MessageData); ok {
			fmt.Printf("message from %s: %s\n", msg.SenderName, msg.Body)
			fmt.Printf("total unread: %d\n", sess.Unread().Total())
		}
	})
	scope.On(protocol.EvNotification, func(_ *protocol.Frame, payload interface{}) {
		if notif, ok := payload.(*protocol.NotificationData); ok {
			fmt.Printf("notification: %s\n", notif.Message)
		}
	})
	scope.On(transport.EvDisconnect, func(_ *protocol.Frame, _ interface{}) {
		log.CtxWarn(ctx, "channel lost, retrying in background")
	})
	scope.On(transport.EvReconnect, func(_ *protocol.Frame, _ interface{}) {
		log.CtxInfo(ctx, "channel restored")
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down")
}
