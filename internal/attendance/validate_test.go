package attendance

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"presenca-bot/internal/models"
)

func TestNewValidator_RegistersPhoneTag(t *testing.T) {
	v := newValidator()

	type phoneOnly struct {
		Phone string `validate:"phone11"`
	}
	assert.NoError(t, v.Struct(phoneOnly{Phone: "(21) 99999-8888"}))
	assert.Error(t, v.Struct(phoneOnly{Phone: "(21) 9999-8888"}))
}

func TestValidateStruct_Messages(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "Name is required", validateStruct(ctx, &RegisterInput{Phone: "11912345678"}))
	assert.Equal(t, "Phone must have 11 digits", validateStruct(ctx, &RegisterInput{Name: "Ana", Phone: "123"}))
	assert.Equal(t, "Name is too long", validateStruct(ctx, &RegisterInput{Name: strings.Repeat("a", 121), Phone: "11912345678"}))
	assert.Equal(t, "Type is too long", validateStruct(ctx, &RegisterInput{Name: "Ana", Phone: "11912345678", Type: models.ParticipantType(strings.Repeat("t", 41))}))
	assert.Empty(t, validateStruct(ctx, &RegisterInput{Name: strings.Repeat("a", 120), Phone: "11912345678"}))
}
