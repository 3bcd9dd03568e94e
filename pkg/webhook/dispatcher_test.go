package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeliverTextEvent(t *testing.T) {
	t.Parallel()

	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("invalid json body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL)
	if err := d.Deliver(context.Background(), NewTextEvent("5511999990000", "hello")); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if received["telefone"] != "5511999990000" {
		t.Fatalf("unexpected telefone: %v", received["telefone"])
	}
	if received["type"] != "text" {
		t.Fatalf("unexpected type: %v", received["type"])
	}
	if received["mensagem"] != "hello" {
		t.Fatalf("unexpected mensagem: %v", received["mensagem"])
	}
	if _, ok := received["imagens"]; ok {
		t.Fatalf("text event must not carry imagens")
	}
}

func TestDeliverAudioEvent(t *testing.T) {
	t.Parallel()

	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL)
	if err := d.Deliver(context.Background(), NewAudioEvent("5511999990000", "b64data", "olá")); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if received["type"] != "audio" {
		t.Fatalf("unexpected type: %v", received["type"])
	}
	if received["audio"] != "b64data" {
		t.Fatalf("unexpected audio: %v", received["audio"])
	}
	if received["textoTranscrito"] != "olá" {
		t.Fatalf("unexpected transcript: %v", received["textoTranscrito"])
	}
}

func TestDeliverImageGroupEvent(t *testing.T) {
	t.Parallel()

	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	images := []Image{
		{Filename: "a.jpg", Mimetype: "image/jpeg", Base64: "aaa"},
		{Filename: "b.png", Mimetype: "image/png", Base64: "bbb"},
	}

	d := NewDispatcher(srv.URL)
	if err := d.Deliver(context.Background(), NewImageGroupEvent("5511999990000", images)); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if received.Type != TypeImages {
		t.Fatalf("unexpected type: %s", received.Type)
	}
	if len(received.Imagens) != 2 || received.Imagens[0].Filename != "a.jpg" || received.Imagens[1].Filename != "b.png" {
		t.Fatalf("image order not preserved: %+v", received.Imagens)
	}
}

func TestDeliverNon2xxIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow not active", http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL)
	if err := d.Deliver(context.Background(), NewTextEvent("x", "y")); err == nil {
		t.Fatalf("expected error on 404")
	}
}

func TestDeliverUnreachableIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewDispatcher(srv.URL)
	if err := d.Deliver(context.Background(), NewTextEvent("x", "y")); err == nil {
		t.Fatalf("expected error against closed server")
	}
}

func TestTimeoutFor(t *testing.T) {
	t.Parallel()

	d := NewDispatcher("http://example.invalid")
	if got := d.timeoutFor(NewTextEvent("x", "y")); got != defaultTimeout {
		t.Fatalf("unexpected text timeout: %s", got)
	}
	if got := d.timeoutFor(NewImageGroupEvent("x", nil)); got != imageGroupTimeout {
		t.Fatalf("unexpected image timeout: %s", got)
	}
}
