// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// OperationError is the error payload of a finished operation.
type OperationError struct {
	Code    int    `json:"code,omitempty" yaml:"code,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (e *OperationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("code %d: %s", e.Code, e.Message)
	}
	return e.Message
}

// OperationResponse is the success payload of a finished upload operation.
type OperationResponse struct {
	DocumentName string `json:"documentName,omitempty" yaml:"document_name,omitempty"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Operation is the handle of an asynchronous ingestion job.
type Operation struct {
	Name     string             `json:"name" yaml:"name"`
	Done     bool               `json:"done" yaml:"done"`
	Metadata map[string]any     `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Error    *OperationError    `json:"error,omitempty" yaml:"error,omitempty"`
	Response *OperationResponse `json:"response,omitempty" yaml:"response,omitempty"`
}

// DocumentID returns the document resource name carried by a successful
// operation, or "" when there is none.
func (o Operation) DocumentID() string {
	if o.Response == nil {
		return ""
	}
	if o.Response.DocumentName != "" {
		return o.Response.DocumentName
	}
	return o.Response.Name
}

// Failed reports whether the operation finished with an error payload.
func (o Operation) Failed() bool {
	return o.Error != nil
}
