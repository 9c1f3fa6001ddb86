package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemRequest struct {
	ProductID string `validate:"required,uuid"`
	Quantity  int    `validate:"required,gte=1,lte=100"`
}

func TestValidate_OK(t *testing.T) {
	req := addItemRequest{
		ProductID: "1b671a64-40d5-491e-99b0-da01ff1f3341",
		Quantity:  2,
	}
	assert.NoError(t, Validate(req))
}

func TestValidate_FieldMessages(t *testing.T) {
	req := addItemRequest{ProductID: "not-a-uuid", Quantity: 0}

	err := Validate(req)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Equal(t, "must be a valid UUID", fields["ProductID"])
	assert.Equal(t, "is required", fields["Quantity"])
	assert.Contains(t, err.Error(), "ProductID")
}

func TestValidate_QuantityBounds(t *testing.T) {
	req := addItemRequest{
		ProductID: "1b671a64-40d5-491e-99b0-da01ff1f3341",
		Quantity:  101,
	}

	err := Validate(req)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at most 100", valErr.Fields()["Quantity"])
}
