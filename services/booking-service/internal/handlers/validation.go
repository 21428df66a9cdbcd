package handlers

import (
	"time"

	"github.com/agendasalon/agenda/services/booking-service/internal/schedule"
	"github.com/go-playground/validator/v10"
)

// newValidator registers the "date" (YYYY-MM-DD) and "clock" (HH:MM) tags
// used by request bodies.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := schedule.ParseDate(value, time.UTC)
		return err == nil
	})

	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := schedule.ParseClock(value)
		return err == nil
	})

	return v
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[err.Field()] = err.Tag()
	}
	return details
}
