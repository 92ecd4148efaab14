package pdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReceipt(t *testing.T) {
	provider := NewProvider()

	out, err := provider.GenerateReceipt(ReceiptData{
		PaymentID:      "1958473625201541120",
		ContractTitle:  "Kitchen renovation",
		MilestoneTitle: "First fix plumbing",
		ClientName:     "Alice Example",
		ProviderName:   "Bob the Builder",
		Gateway:        "cardlink",
		Amount:         "£450.00",
		DatePaid:       "12 August 2026",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "output should be a PDF document")
}
