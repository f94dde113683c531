//go:build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vhoangnguyen/checkoutflow/internal/checkoutform"
	"github.com/vhoangnguyen/checkoutflow/internal/domain"
	"github.com/vhoangnguyen/checkoutflow/internal/messaging"
	"github.com/vhoangnguyen/checkoutflow/internal/worker"
)

func TestCheckoutFormPersistence(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := checkoutform.NewRepository(db)

	if form, err := repo.Get(ctx, "cust-1"); err != nil || form != nil {
		t.Fatalf("expected no form yet, got %+v (%v)", form, err)
	}

	saved := &domain.CheckoutForm{
		CustomerID:    "cust-1",
		RecipientName: "Nguyễn Văn A",
		Phone:         "0912345678",
		ProvinceCode:  "1",
		DistrictCode:  "2",
		WardCode:      "70",
		Street:        "12 Hàng Gai",
		UpdatedAt:     time.Now().UTC(),
	}
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("failed to save form: %v", err)
	}

	fetched, err := repo.Get(ctx, "cust-1")
	if err != nil {
		t.Fatalf("failed to fetch form: %v", err)
	}
	if fetched == nil {
		t.Fatal("form not found after save")
	}
	if fetched.RecipientName != saved.RecipientName || fetched.WardCode != saved.WardCode {
		t.Fatalf("round trip mismatch: %+v", fetched)
	}

	// Saving again for the same customer must overwrite, not duplicate.
	saved.Street = "34 Hàng Bông"
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("failed to update form: %v", err)
	}
	updated, err := repo.Get(ctx, "cust-1")
	if err != nil {
		t.Fatalf("failed to fetch updated form: %v", err)
	}
	if updated.Street != "34 Hàng Bông" {
		t.Fatalf("expected updated street, got %q", updated.Street)
	}

	if err := repo.Delete(ctx, "cust-1"); err != nil {
		t.Fatalf("failed to delete form: %v", err)
	}
	if form, err := repo.Get(ctx, "cust-1"); err != nil || form != nil {
		t.Fatalf("expected form to be gone, got %+v (%v)", form, err)
	}
}

type emailCapture struct {
	mu     sync.Mutex
	emails []map[string]string
}

func (e *emailCapture) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	e.mu.Lock()
	e.emails = append(e.emails, req)
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"sent"}`)
}

func (e *emailCapture) getEmails() []map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]map[string]string, len(e.emails))
	copy(result, e.emails)
	return result
}

func TestOrderPlacedEventFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	emailCap := &emailCapture{}
	emailMux := http.NewServeMux()
	emailMux.HandleFunc("POST /send", emailCap.handler)
	emailServer := httptest.NewServer(emailMux)
	defer emailServer.Close()

	producer := messaging.NewProducer(brokers, messaging.TopicOrderPlaced)
	defer func() { _ = producer.Close() }()

	event := domain.OrderPlacedEvent{
		OrderID:       "order-77",
		CustomerID:    "cust-1",
		Method:        domain.PaymentMethodCOD,
		Amount:        240000,
		RecipientName: "Nguyễn Văn A",
		Address:       "12 Hàng Gai, Hàng Trống, Hoàn Kiếm, Hà Nội",
		Timestamp:     time.Now().UTC(),
	}
	if err := producer.PublishOrderPlaced(ctx, event); err != nil {
		t.Fatalf("failed to publish event: %v", err)
	}

	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderPlaced, "order-notifier-test",
		messaging.WithStartOffset(kafkago.FirstOffset),
	)
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	notifier := worker.NewOrderNotifier(emailServer.URL, httpClient, logger)

	consumeCtx, stopConsuming := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(consumeCtx, func(ctx context.Context, payload []byte) error {
			err := notifier.Handle(ctx, payload)
			stopConsuming()
			return err
		})
	}()

	select {
	case <-consumeCtx.Done():
	case <-time.After(90 * time.Second):
		stopConsuming()
		t.Fatal("timed out waiting for the event")
	}
	<-done

	emails := emailCap.getEmails()
	if len(emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(emails))
	}

	email := emails[0]
	if email["to"] != "cust-1@example.com" {
		t.Fatalf("unexpected recipient: %s", email["to"])
	}
	if !strings.Contains(email["subject"], "order-77") {
		t.Fatalf("expected subject to contain the order id, got: %s", email["subject"])
	}
	if !strings.Contains(email["body"], "240000") {
		t.Fatalf("expected body to contain the amount, got: %s", email["body"])
	}
}
