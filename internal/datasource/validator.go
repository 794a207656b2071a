package datasource

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/gridcast/internal/models"
)

// RecordValidator checks feed records against their struct tags before they
// enter the pipeline. Invalid records are dropped and logged, never repaired.
type RecordValidator struct {
	validate *validator.Validate
	logger   *logrus.Entry
}

// NewRecordValidator creates a validator with the model-specific rules registered.
func NewRecordValidator(logger *logrus.Logger) *RecordValidator {
	v := validator.New()
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseSeverity(fl.Field().String())
		return ok
	})

	var entry *logrus.Entry
	if logger != nil {
		entry = logger.WithField("component", "record_validator")
	}
	return &RecordValidator{validate: v, logger: entry}
}

// Check validates one record.
func (rv *RecordValidator) Check(record interface{}) error {
	if err := rv.validate.Struct(record); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// keep reports whether a record is valid, logging why it is not.
func (rv *RecordValidator) keep(feed, ref string, record interface{}) bool {
	err := rv.Check(record)
	if err == nil {
		return true
	}
	if rv.logger != nil {
		rv.logger.WithFields(logrus.Fields{
			"feed":   feed,
			"record": ref,
			"error":  err.Error(),
		}).Warn("Dropping invalid feed record")
	}
	return false
}

// filterValid returns the records that pass validation, preserving order.
func filterValid[T any](rv *RecordValidator, feed string, records []T, ref func(T) string) []T {
	out := records[:0:0]
	for _, r := range records {
		if rv.keep(feed, ref(r), r) {
			out = append(out, r)
		}
	}
	return out
}
