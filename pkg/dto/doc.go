// Package dto holds the request and response payloads shared by the API
// server and the Go SDK, together with their field validation rules.
package dto
