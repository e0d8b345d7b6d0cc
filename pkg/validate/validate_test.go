package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/platter/pkg/validate"
)

type reviewInput struct {
	RestRating     int    `json:"restRating"     validate:"required,min=1,max=5"`
	DeliveryRating int    `json:"deliveryRating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment"        validate:"max=10"`
}

type signupInput struct {
	Email    string `json:"email"    validate:"required,email"`
	UserType string `json:"userType" validate:"required,oneof=customer restaurant delivery"`
	RestName string `json:"restname" validate:"required_if=UserType restaurant"`
	Slot     string `json:"slot"     validate:"omitempty,hhmm"`
}

func TestValidInput(t *testing.T) {
	assert.Empty(t, validate.Struct(reviewInput{RestRating: 5, DeliveryRating: 1, Comment: "great"}))
	assert.NoError(t, validate.Check(signupInput{Email: "a@b.co", UserType: "customer", Slot: "09:30"}))
}

func TestRatingRange(t *testing.T) {
	errs := validate.Struct(reviewInput{RestRating: 6, DeliveryRating: 0, Comment: "far too long a comment"})

	assert.Equal(t, "The restRating must not be greater than 5.", errs["restRating"])
	assert.Equal(t, "The deliveryRating field is required.", errs["deliveryRating"])
	assert.Equal(t, "The comment must not be greater than 10 characters.", errs["comment"])
}

func TestMessagesUseJSONNames(t *testing.T) {
	errs := validate.Struct(signupInput{Email: "nope", UserType: "admin"})
	assert.Equal(t, "The email must be a valid email address.", errs["email"])
	assert.Equal(t, "The userType must be one of: customer, restaurant, delivery.", errs["userType"])
	assert.NotContains(t, errs, "restname")
}

func TestConditionalRequired(t *testing.T) {
	err := validate.Check(signupInput{Email: "r@b.co", UserType: "restaurant", Slot: "25:00"})
	errs, ok := err.(validate.Errors)
	assert.True(t, ok)
	assert.Contains(t, errs, "restname")
	assert.Equal(t, "The slot must be a time like 14:05.", errs["slot"])
	assert.Equal(t, "The restname field is required. The slot must be a time like 14:05.", err.Error())
}

func TestHasErrors(t *testing.T) {
	assert.False(t, validate.HasErrors(map[string]string{}))
	assert.True(t, validate.HasErrors(map[string]string{"x": "y"}))
}
