// cmd/sendsms/main.go
//
// Ad-hoc one-shot sender, handy for smoke-testing the relay from any
// workstation: sendsms -to 021555123 -message "hello".
package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/practiceops/smsbridge-backend/internal/config"
	"github.com/practiceops/smsbridge-backend/internal/dispatch"
	"github.com/practiceops/smsbridge-backend/internal/model"
)

func main() {
	to := flag.String("to", "", "destination phone number")
	message := flag.String("message", "", "message body")
	flag.Parse()

	if *to == "" || *message == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("💥 ", err)
	}

	// No local bridge: a one-shot CLI always goes through the relay, even on
	// the bridge machine, so it exercises the same path every workstation uses.
	dispatcher := dispatch.New(cfg, nil)

	msg := &model.OutboundMessage{
		Destination: *to,
		Body:        *message,
		Class:       model.ClassAdhoc,
		Status:      model.SendPending,
	}
	if !dispatcher.Send(msg, dispatch.ModeRelay) {
		log.Println("⚠️ send failed:", msg.LastError)
		os.Exit(1)
	}
	log.Println("✅ sent to", msg.Destination)
}
