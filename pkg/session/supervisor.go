package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"zaprelay/pkg/bus"
	"zaprelay/pkg/logger"
)

// Supervisor owns the one WhatsApp session: it creates the whatsmeow client
// from the persisted device store, converts inbound notifications into bus
// events, and restarts the session in place when the client reports an
// invalid state. If the restart itself fails it terminates the process, so
// an external supervisor gets a fresh start.
type Supervisor struct {
	storePath    string
	bus          *bus.EventBus
	markActivity func()

	mu        sync.RWMutex
	client    *whatsmeow.Client
	container *sqlstore.Container
	db        *sql.DB
	state     State

	restartFn func() error
	exitFn    func(code int)
}

// NewSupervisor wires the supervisor to the inbound bus. markActivity is
// called on every raw message notification, before filtering, and feeds the
// liveness watchdog.
func NewSupervisor(storePath string, eventBus *bus.EventBus, markActivity func()) *Supervisor {
	if markActivity == nil {
		markActivity = func() {}
	}
	s := &Supervisor{
		storePath:    storePath,
		bus:          eventBus,
		markActivity: markActivity,
		state:        StateDisconnected,
	}
	s.restartFn = s.reconnect
	s.exitFn = os.Exit
	return s
}

// Start opens the session store, creates the client, and connects. A new
// device goes through QR pairing on the terminal. Failure here is fatal to
// the caller: session creation is never retried in-process.
func (s *Supervisor) Start(ctx context.Context) error {
	logger.InfoCF("session", "Starting WhatsApp session", map[string]interface{}{
		"store": s.storePath,
	})

	if err := os.MkdirAll(filepath.Dir(s.storePath), 0755); err != nil {
		return fmt.Errorf("failed to create session store directory: %w", err)
	}

	dbLog := waLog.Stdout("Session-DB", "WARN", true)
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", s.storePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	// Serialize all store access through one connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	container := sqlstore.NewWithDB(db, "sqlite", dbLog)
	if err := container.Upgrade(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to upgrade session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to get device from store: %w", err)
	}

	clientLog := waLog.Stdout("Session", "WARN", true)
	client := whatsmeow.NewClient(deviceStore, clientLog)
	client.AddEventHandler(s.handleEvent)

	s.mu.Lock()
	s.db = db
	s.container = container
	s.client = client
	s.mu.Unlock()

	if client.Store.ID == nil {
		logger.InfoC("session", "No stored device, starting QR pairing")
		if err := s.pairWithQR(ctx); err != nil {
			return fmt.Errorf("QR pairing failed: %w", err)
		}
	} else {
		logger.InfoCF("session", "Resuming stored session", map[string]interface{}{
			"device_id": client.Store.ID.String(),
		})
		if err := client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}

	return nil
}

// Stop disconnects and releases the store.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Disconnect()
		s.client = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	s.container = nil
	s.state = StateDisconnected

	logger.InfoC("session", "Session stopped")
}

func (s *Supervisor) pairWithQR(ctx context.Context) error {
	qrChan, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}

	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect for pairing: %w", err)
	}

	for evt := range qrChan {
		switch evt.Event {
		case "code":
			fmt.Println("\n--- Scan this QR code with WhatsApp (Linked Devices) ---")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			fmt.Println("--- Waiting for scan... ---")

		case "login", "success":
			logger.InfoC("session", "QR pairing successful")
			return nil

		case "timeout":
			return fmt.Errorf("QR code timed out, restart to try again")

		case "error":
			return fmt.Errorf("QR pairing error")
		}
	}

	// Channel closed: the event handler may have won the race.
	if s.client.IsConnected() || s.client.Store.ID != nil {
		return nil
	}
	return fmt.Errorf("QR channel closed unexpectedly")
}

// handleEvent is the central whatsmeow event dispatcher.
func (s *Supervisor) handleEvent(evt interface{}) {
	if msg, ok := evt.(*events.Message); ok {
		s.handleMessage(msg)
		return
	}

	state, ok := classifyEvent(evt)
	if !ok {
		return
	}
	s.applyState(state)
}

// applyState records the transition and, for any invalid state, makes
// exactly one in-place restart attempt. A failed restart exits the process.
func (s *Supervisor) applyState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if state.Valid() {
		logger.InfoCF("session", "Session connected", map[string]interface{}{
			logger.FieldState: string(state),
		})
		return
	}

	logger.WarnCF("session", "Session state invalid, restarting", map[string]interface{}{
		logger.FieldState: string(state),
		"previous":        string(prev),
	})

	if err := s.restartFn(); err != nil {
		logger.ErrorCF("session", "Session restart failed, terminating", map[string]interface{}{
			logger.FieldState: string(state),
			logger.FieldError: err.Error(),
		})
		s.exitFn(1)
	}
}

// reconnect tears the socket down and brings it back up against the same
// device store. It holds the write lock so no send, download, or heartbeat
// runs against the session mid-restart.
func (s *Supervisor) reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return fmt.Errorf("no session client")
	}

	s.client.Disconnect()
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}
	return nil
}

// State returns the last state pushed by the session client.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connected reports whether the session is usable for sends.
func (s *Supervisor) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil && s.client.IsConnected()
}

// Heartbeat proves outbound capability: a device-identity probe plus a
// presence announce. Failures are the liveness monitor's to log.
func (s *Supervisor) Heartbeat(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.client == nil || !s.client.IsConnected() {
		return fmt.Errorf("session not connected")
	}
	if s.client.Store.ID == nil {
		return fmt.Errorf("device identity unavailable")
	}
	if err := s.client.SendPresence(ctx, types.PresenceAvailable); err != nil {
		return fmt.Errorf("presence announce failed: %w", err)
	}
	return nil
}

// Send delivers one text message to a phone number. Used by the HTTP send
// endpoint only.
func (s *Supervisor) Send(ctx context.Context, phone, message string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.client == nil || !s.client.IsConnected() {
		return fmt.Errorf("session not connected")
	}

	jid := types.NewJID(phone, types.DefaultUserServer)

	_ = s.client.SendChatPresence(ctx, jid, types.ChatPresenceComposing, "")

	waMsg := &waE2E.Message{
		Conversation: proto.String(message),
	}
	if _, err := s.client.SendMessage(ctx, jid, waMsg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	_ = s.client.SendChatPresence(ctx, jid, types.ChatPresencePaused, "")

	logger.DebugCF("session", "Message sent", map[string]interface{}{
		logger.FieldSenderID: phone,
	})
	return nil
}
