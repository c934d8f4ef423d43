package validate

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Status  string `validate:"omitempty,room_status"`
	Outcome string `validate:"omitempty,txn_outcome"`
	Date    string `validate:"omitempty,date"`
	Role    string `validate:"omitempty,staff_role"`
	IDCard  string `validate:"omitempty,id_card"`
}

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	assert.NoError(t, v.Struct(sample{
		Status:  "CLEANING",
		Outcome: "FAILED",
		Date:    "2026-10-15",
		Role:    "RECEPTIONIST",
		IDCard:  "11010119900101123X",
	}))

	tests := []struct {
		name  string
		input sample
	}{
		{"未知房态", sample{Status: "BROKEN"}},
		{"未知回调结果", sample{Outcome: "PENDING"}},
		{"日期格式", sample{Date: "2026/10/15"}},
		{"未知角色", sample{Role: "OWNER"}},
		{"证件号", sample{IDCard: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, v.Struct(tt.input))
		})
	}
}

func TestRegisterGin(t *testing.T) {
	assert.NoError(t, RegisterGin())
}
