package services

import (
	"errors"
	"testing"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidate_Task_Valid(t *testing.T) {
	v := newTestValidator(t)

	body := []byte(`{
		"service_type": "EXPRESS",
		"description": "Assemble a wardrobe",
		"location": {"lat": 4.65, "lon": -74.05, "address": "Cra 7 #45", "city": "Bogota"},
		"requested_datetime": "2026-05-01T09:00:00Z",
		"requires_license": false,
		"agreed_amount": 150
	}`)
	if err := v.Validate(SchemaTask, body); err != nil {
		t.Fatalf("expected valid task, got: %v", err)
	}
}

func TestValidate_Task_Invalid(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name string
		body string
	}{
		{
			name: "missing description",
			body: `{"service_type":"EXPRESS","location":{"lat":1,"lon":1,"address":"Calle 1","city":"Cali"},"requested_datetime":"2026-05-01T09:00:00Z","agreed_amount":10}`,
		},
		{
			name: "unknown service type",
			body: `{"service_type":"PREMIUM","description":"x","location":{"lat":1,"lon":1,"address":"Calle 1","city":"Cali"},"requested_datetime":"2026-05-01T09:00:00Z","agreed_amount":10}`,
		},
		{
			name: "non-positive amount",
			body: `{"service_type":"EXPRESS","description":"x","location":{"lat":1,"lon":1,"address":"Calle 1","city":"Cali"},"requested_datetime":"2026-05-01T09:00:00Z","agreed_amount":0}`,
		},
		{
			name: "bad datetime",
			body: `{"service_type":"EXPRESS","description":"x","location":{"lat":1,"lon":1,"address":"Calle 1","city":"Cali"},"requested_datetime":"tomorrow","agreed_amount":10}`,
		},
		{
			name: "latitude out of range",
			body: `{"service_type":"EXPRESS","description":"x","location":{"lat":91,"lon":1,"address":"Calle 1","city":"Cali"},"requested_datetime":"2026-05-01T09:00:00Z","agreed_amount":10}`,
		},
		{
			name: "location without city",
			body: `{"service_type":"EXPRESS","description":"x","location":{"address":"Calle 1"},"requested_datetime":"2026-05-01T09:00:00Z","agreed_amount":10}`,
		},
		{
			name: "not JSON",
			body: `service_type=EXPRESS`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(SchemaTask, []byte(tc.body))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestValidate_Rating(t *testing.T) {
	v := newTestValidator(t)

	if err := v.Validate(SchemaRating, []byte(`{"stars":5,"punctuality":4,"comment":"Great work"}`)); err != nil {
		t.Fatalf("expected valid rating, got: %v", err)
	}
	for _, body := range []string{`{"stars":0}`, `{"stars":6}`, `{"comment":"no stars"}`, `{"stars":3,"quality":9}`} {
		if err := v.Validate(SchemaRating, []byte(body)); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", body, err)
		}
	}
}

func TestValidate_Registration(t *testing.T) {
	v := newTestValidator(t)

	if err := v.Validate(SchemaRegistration, []byte(`{"name":"Ana","email":"ana@example.com","password":"s3cretpass"}`)); err != nil {
		t.Fatalf("expected valid registration, got: %v", err)
	}
	if err := v.Validate(SchemaRegistration, []byte(`{"name":"Ana","email":"not-an-email","password":"s3cretpass"}`)); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for bad email, got %v", err)
	}
	if err := v.Validate(SchemaRegistration, []byte(`{"name":"Ana","email":"ana@example.com","password":"short"}`)); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for short password, got %v", err)
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)
	err := v.Validate("invoice", []byte(`{}`))
	if err == nil || errors.Is(err, ErrValidation) {
		t.Fatalf("expected plain error for unknown schema, got %v", err)
	}
}
