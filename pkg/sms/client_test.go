package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/Alijeyrad/mindcare_backend/config"
)

func TestNewFromConfig_Disabled(t *testing.T) {
	client, err := NewFromConfig(config.SMSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if client.IsEnabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestNewFromConfig_EnabledWithoutAPIKey(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		SMSIR:   config.SMSIRConfig{TemplateID: "100200"},
	}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("Expected error when API key is missing")
	}
}

func TestNewFromConfig_EnabledWithoutTemplate(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		SMSIR:   config.SMSIRConfig{APIKey: "key"},
	}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("Expected error when template id is missing")
	}
}

func TestNewFromConfig_Enabled(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		SMSIR:   config.SMSIRConfig{APIKey: "key", SecretKey: "secret", TemplateID: "100200"},
	}
	client, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if !client.IsEnabled() {
		t.Error("Expected client to be enabled")
	}
}

func TestSendSessionUpdate_Disabled(t *testing.T) {
	client, _ := NewFromConfig(config.SMSConfig{Enabled: false})
	if err := client.SendSessionUpdate(context.Background(), "", SessionUpdate{}); err != nil {
		t.Errorf("disabled client should no-op, got %v", err)
	}
}

func TestSendSessionUpdate_MissingRecipient(t *testing.T) {
	client := &Client{enabled: true, templateID: "100200"}
	err := client.SendSessionUpdate(context.Background(), "", SessionUpdate{Event: "accepted"})
	if !errors.Is(err, ErrMissingRecipient) {
		t.Errorf("expected ErrMissingRecipient, got %v", err)
	}
}
