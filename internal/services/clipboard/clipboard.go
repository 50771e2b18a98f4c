// Package clipboard provides access to the system clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

const errorCopyFormat = "copy to clipboard: %w"

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	writeAll func(text string) error
}

// NewService constructs a Clipboard service implementation.
func NewService() *Service {
	return &Service{writeAll: clipboard.WriteAll}
}

// Copy writes text to the system clipboard. It fails when no clipboard utility is available.
func (service *Service) Copy(text string) error {
	if writeError := service.writeAll(text); writeError != nil {
		return fmt.Errorf(errorCopyFormat, writeError)
	}
	return nil
}

var _ Copier = (*Service)(nil)
