// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/practiceops/smsbridge-backend/internal/config"
	"github.com/practiceops/smsbridge-backend/internal/db"
	"github.com/practiceops/smsbridge-backend/internal/dedup"
	"github.com/practiceops/smsbridge-backend/internal/dispatch"
	"github.com/practiceops/smsbridge-backend/internal/inbound"
	"github.com/practiceops/smsbridge-backend/internal/phone"
	"github.com/practiceops/smsbridge-backend/internal/relay"
	"github.com/practiceops/smsbridge-backend/internal/repository"
	"github.com/practiceops/smsbridge-backend/internal/scheduler"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("💥 ", err)
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("💥 ", err)
	}
	defer conn.Close()

	// The confirmation-status codes are resolved exactly once, before any
	// sending; a duplicate or missing code must stop the process here.
	defRepo := &repository.DefRepository{DB: conn}
	defs, err := defRepo.LoadConfirmationDefs()
	if err != nil {
		log.Fatal("💥 ", err)
	}

	patientRepo := &repository.PatientRepository{DB: conn}
	apptRepo := &repository.AppointmentRepository{DB: conn}
	commlogRepo := &repository.CommlogRepository{DB: conn}

	store, err := dedup.NewStore(cfg.MarkerDir)
	if err != nil {
		log.Fatal("💥 ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bridge phone.Bridge
	var monitor *phone.Monitor
	if cfg.IsBridgeMachine {
		client := phone.NewClient(cfg.PhoneAgentAddr, cfg.PracticePhone)
		bridge = client
		monitor = phone.NewMonitor(client, nil)
	}

	dispatcher := dispatch.New(cfg, bridge)

	var relayServer *relay.Server
	if cfg.IsBridgeMachine {
		log.Println("📱 this machine will send and receive SMS")

		// A session that never comes up is degraded, not fatal: the process
		// keeps running and sends still fail over to logging.
		if err := monitor.StartSession(); err != nil {
			log.Println("⚠️ phone session unusable:", err)
		}

		processor := inbound.NewProcessor(cfg, store, patientRepo, apptRepo, commlogRepo, dispatcher, defs)
		go phone.RunEventPump(ctx, bridge, monitor, dispatcher, processor)

		relayServer = relay.NewServer(cfg, dispatcher, monitor)
		go func() {
			if err := relayServer.Start(); err != nil {
				log.Fatal("💥 relay server: ", err)
			}
		}()

		// Only the bridge machine runs the reminder scheduler: one process in
		// the send window, so patients cannot be texted twice by two
		// workstations racing the same pass.
		sched := scheduler.New(cfg, patientRepo, apptRepo, commlogRepo, dispatcher, defs)
		go sched.Run(ctx)
	} else {
		log.Println("not the bridge machine, relaying SMS via", cfg.BridgeHost)
	}

	if cfg.DebugMode() {
		log.Println("⚠️ DEBUG MODE: every outbound SMS goes to", cfg.DebugNumber)
	}

	<-ctx.Done()
	log.Println("shutting down")

	if relayServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := relayServer.Shutdown(shutdownCtx); err != nil {
			log.Println("⚠️ relay shutdown:", err)
		}
	}
	if bridge != nil {
		bridge.Close()
	}
}
