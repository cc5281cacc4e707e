package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/errors"
)

type activateBody struct {
	PreferredAuthType string `json:"preferred_auth_type" validate:"omitempty,max=8"`
	ChainID           uint64 `json:"chain_id" validate:"omitempty,chain_id"`
	Account           string `json:"account" validate:"omitempty,eth_checksum"`
}

func TestValidate_StructTags(t *testing.T) {
	tests := []struct {
		name      string
		body      activateBody
		wantField string
	}{
		{"empty is valid", activateBody{}, ""},
		{"full valid", activateBody{PreferredAuthType: "google", ChainID: 137, Account: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"}, ""},
		{"auth type too long", activateBody{PreferredAuthType: "discord-long"}, "preferred_auth_type"},
		{"chain id too large", activateBody{ChainID: chain.MaxSafeChainID + 1}, "chain_id"},
		{"bad checksum", activateBody{Account: "0xFB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"}, "account"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.body)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantField) {
				t.Errorf("expected error to name %q, got %v", tc.wantField, err)
			}
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestValidate_ChainIDKinds(t *testing.T) {
	type ids struct {
		Signed int    `json:"signed" validate:"omitempty,chain_id"`
		Hex    string `json:"hex" validate:"omitempty,chain_id"`
	}
	if err := Validate(ids{Signed: 10, Hex: "0x89"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(ids{Signed: -1}); err == nil {
		t.Error("expected a negative chain id to fail")
	}
	if err := Validate(ids{Hex: "polygon"}); err == nil {
		t.Error("expected a non-numeric chain id to fail")
	}
}

func TestValidate_FieldDetails(t *testing.T) {
	type backend struct {
		BaseURL   string `mapstructure:"base_url" validate:"required,url"`
		ProjectID string `mapstructure:"project_id" validate:"required"`
		Attempts  int    `yaml:"attempts" validate:"gte=0"`
	}

	err := Validate(backend{BaseURL: "not a url", Attempts: -1})
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Fatalf("expected three field errors, got %v", appErr.Details)
	}
	want := map[string]string{
		"base_url":   "must be an absolute URL",
		"project_id": "is required",
		"attempts":   "is out of range (gte=0)",
	}
	for _, f := range fields {
		if want[f.Field] != f.Message {
			t.Errorf("%s: expected %q, got %q", f.Field, want[f.Field], f.Message)
		}
	}
}

func TestValidate_UntaggedFieldName(t *testing.T) {
	type input struct {
		Code string `validate:"required,min=3"`
	}
	if err := Validate(input{Code: "abc"}); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
	err := Validate(input{Code: "ab"})
	if err == nil || !strings.Contains(err.Error(), "code must be at least 3") {
		t.Errorf("expected lowercase field name in %v", err)
	}
}

func TestValidate_NotAStruct(t *testing.T) {
	if err := Validate("social"); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
