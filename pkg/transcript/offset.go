package transcript

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tabletalk-io/tabletalk/pkg/logger"
)

// OffsetStore persists the transcript length already scanned for triggers
// as a plain-text integer. It is owned by a single detector; Save never
// moves the offset backwards.
type OffsetStore struct {
	path string
}

func NewOffsetStore(path string) *OffsetStore {
	return &OffsetStore{path: path}
}

func (o *OffsetStore) Load() (int, error) {
	data, err := os.ReadFile(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read offset: %w", err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		logger.WarnCF("transcript", "Offset file is not a valid integer, resetting to 0", map[string]interface{}{
			"path": o.path,
		})
		return 0, nil
	}
	return n, nil
}

func (o *OffsetStore) Save(n int) error {
	current, err := o.Load()
	if err != nil {
		return err
	}
	if n <= current {
		return nil
	}
	if err := os.WriteFile(o.path, []byte(strconv.Itoa(n)), 0644); err != nil {
		return fmt.Errorf("write offset: %w", err)
	}
	return nil
}
