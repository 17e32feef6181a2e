package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/services"
)

func TestStatusForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "unauthenticated", err: services.ErrUnauthenticated, want: http.StatusUnauthorized},
		{name: "cart not found", err: services.ErrCartNotFound, want: http.StatusNotFound},
		{name: "cart empty", err: services.ErrCartEmpty, want: http.StatusNotFound},
		{name: "order not found", err: services.ErrOrderNotFound, want: http.StatusNotFound},
		{name: "db no rows", err: pgx.ErrNoRows, want: http.StatusNotFound},
		{name: "missing field", err: fmt.Errorf("%w: delivery_pin", services.ErrMissingField), want: http.StatusBadRequest},
		{name: "invalid pin", err: services.ErrInvalidPin, want: http.StatusBadRequest},
		{name: "invalid address", err: fmt.Errorf("%w: phone", services.ErrInvalidAddress), want: http.StatusBadRequest},
		{name: "booking rejected with carrier remark", err: fmt.Errorf("%w: pin not serviceable", services.ErrShipmentBookingFailed), want: http.StatusBadRequest},
		{name: "carrier cancel refused", err: services.ErrCarrierCancelFailed, want: http.StatusBadRequest},
		{name: "not cancellable", err: services.ErrNotCancellable, want: http.StatusBadRequest},
		{name: "bad signature", err: services.ErrSignatureInvalid, want: http.StatusBadRequest},
		{name: "amount mismatch", err: services.ErrAmountMismatch, want: http.StatusBadRequest},
		{name: "unexpected error", err: errors.New("connection pool exhausted"), want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := statusForError(tc.err); got != tc.want {
				t.Fatalf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
