package catalog

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwise/rentwise-backend/pkg/enums"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
)

func TestParseItemFormNestedKeys(t *testing.T) {
	form := &multipart.Form{
		Value: map[string][]string{
			"stuffname":                       {" Mixer "},
			"price_per_day":                   {"12.50"},
			"status":                          {"published"},
			"user":                            {"owner-9"},
			"stuff_management[name]":          {"Kitchen fleet"},
			"stuff_management[deposit]":       {"100"},
			"stuff_management[availability]":  {"unavailable"},
			"stuff_management[rental_zone]":   {"east"},
			"equipment_images[1][alt]":        {"second"},
			"equipment_images[1][position]":   {"0"},
			"equipment_images[0][url]":        {"first.jpg"},
			"equipment_images[1][url]":        {"second.jpg"},
		},
		File: map[string][]*multipart.FileHeader{
			"stuff_management[contract_required]": {{Filename: "contract.pdf"}},
			"equipment_images[2][url]":            {{Filename: "third.jpg"}},
		},
	}

	parsed, err := ParseItemForm(form)
	require.NoError(t, err)
	require.NotNil(t, parsed.Name)
	assert.Equal(t, "Mixer", *parsed.Name)
	assert.Equal(t, "12.5", parsed.PricePerDay.String())
	assert.Equal(t, enums.ItemStatusPublished, *parsed.Status)

	require.NotNil(t, parsed.Profile)
	assert.Equal(t, "Kitchen fleet", *parsed.Profile.Name)
	assert.Equal(t, "100", parsed.Profile.Deposit.String())
	assert.Equal(t, enums.AvailabilityUnavailable, *parsed.Profile.Availability)
	assert.Equal(t, "contract.pdf", *parsed.Profile.ContractDocumentKey)

	require.Len(t, parsed.Images, 3)
	// equal positions keep form order
	assert.Equal(t, "first.jpg", parsed.Images[0].URL)
	assert.Equal(t, "second.jpg", parsed.Images[1].URL)
	assert.Equal(t, 0, *parsed.Images[1].Position)
	assert.Equal(t, "third.jpg", parsed.Images[2].URL)
	assert.Equal(t, 2, *parsed.Images[2].Position)

	input := parsed.CreateInput()
	assert.Equal(t, "Mixer", input.Name)
	assert.Equal(t, "owner-9", *input.OwnerID)
}

func TestParseItemFormErrors(t *testing.T) {
	form := &multipart.Form{Value: map[string][]string{
		"price_per_day":                 {"cheap"},
		"stuff_management[deposit]":     {"lots"},
		"equipment_images[0][alt]":      {"no url"},
		"equipment_images[1][url]":      {"x.jpg"},
		"equipment_images[1][position]": {"-3"},
	}}
	_, err := ParseItemForm(form)
	require.Error(t, err)
	fields := pkgerrors.As(err).Details().(map[string]string)
	assert.Contains(t, fields, "price_per_day")
	assert.Contains(t, fields, "stuff_management.deposit")
	assert.Contains(t, fields, "equipment_images.0.url")
	assert.Contains(t, fields, "equipment_images.1.position")
}

func TestParseItemFormEmpty(t *testing.T) {
	parsed, err := ParseItemForm(&multipart.Form{})
	require.NoError(t, err)
	assert.Nil(t, parsed.Profile)
	assert.Nil(t, parsed.Images)

	patch := parsed.Patch()
	assert.Nil(t, patch.Images)
}
