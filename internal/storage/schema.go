/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	_ "embed"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// boardSchema is the JSON Schema the manifest must conform to. It is embedded
// so validation works without a repository checkout.
//
//go:embed board.schema.json
var boardSchema []byte

// ValidateManifest checks board.json bytes against the embedded schema.
// It returns nil when the document conforms, or an error listing all
// violations.
func ValidateManifest(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(boardSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var sb strings.Builder
	for i, e := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.String())
	}
	return fmt.Errorf("invalid manifest: %s", sb.String())
}
