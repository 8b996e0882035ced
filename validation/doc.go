// Package validation provides input validation for iopipe configuration
// and node options.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection.
//
// # Struct Tag Validation
//
//	type PipelineConfig struct {
//	    BlockSize string `validate:"required"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Positive("block_size", int64(blockSize))
//	err := v.Err()
package validation
