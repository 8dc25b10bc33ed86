// Package resolver maps a wake token to a target using the static registry.
//
// The registry is a plain text file with one node per line:
//
//	# name   mac                 ip
//	node1    AA:BB:CC:DD:EE:FF   192.168.1.10
//	nas      11:22:33:44:55:66
//
// Blank lines and lines starting with '#' are ignored. The first line whose
// name matches wins, even when its MAC is malformed.
package resolver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/fgeck/nodewake/internal/services/wol"
	"github.com/rs/zerolog"
)

// dashedMAC matches the XX-XX-XX-XX-XX-XX notation, which is not accepted.
var dashedMAC = regexp.MustCompile(`^([0-9A-Fa-f]{2}-){5}[0-9A-Fa-f]{2}$`)

var (
	// ErrRegistryNotFound is returned when a name lookup needs a registry that does not exist.
	ErrRegistryNotFound = errors.New("target registry not found")
	// ErrNameNotFound is returned when no registry line matches the name.
	ErrNameNotFound = errors.New("target name not found in registry")
)

// Service defines the interface for target resolution.
type Service interface {
	Resolve(token string) (*models.WakeTarget, error)
	List() ([]models.WakeTarget, error)
}

// Impl implements the resolver Service interface.
type Impl struct {
	path   string
	open   func(name string) (io.ReadCloser, error)
	logger zerolog.Logger
}

// New creates a resolver reading the registry at path.
func New(logger zerolog.Logger, path string) *Impl {
	return NewWithOpener(logger, path, func(name string) (io.ReadCloser, error) {
		return os.Open(name) //nolint:gosec // path is operator configured
	})
}

// NewWithOpener creates a resolver with a custom file opener (for testing).
func NewWithOpener(logger zerolog.Logger, path string, open func(name string) (io.ReadCloser, error)) *Impl {
	return &Impl{
		path:   path,
		open:   open,
		logger: logger,
	}
}

// Path returns the registry path.
func (s *Impl) Path() string {
	return s.path
}

// Resolve returns the target for a MAC address or registry name.
// A MAC token is returned directly without touching the registry.
func (s *Impl) Resolve(token string) (*models.WakeTarget, error) {
	token = strings.TrimSpace(token)

	if wol.IsMAC(token) {
		return &models.WakeTarget{MACAddress: strings.ToUpper(token)}, nil
	}

	var found *models.WakeTarget
	var lineErr error
	err := s.scan(func(fields []string, lineNo int) bool {
		if fields[0] != token {
			return true
		}
		found, lineErr = s.targetFromFields(fields, lineNo)
		return false
	})
	if err != nil {
		return nil, s.explain(token, err)
	}
	if lineErr != nil {
		return nil, lineErr
	}
	if found == nil {
		return nil, s.explain(token, fmt.Errorf("%w: %q (registry %s)", ErrNameNotFound, token, s.path))
	}

	s.logger.Debug().
		Str("name", token).
		Str("mac", found.MACAddress).
		Str("ip", found.NetworkAddress).
		Msg("target resolved from registry")
	return found, nil
}

// explain turns a failed lookup of a token that was probably meant as a MAC
// address into a validation error naming the bad MAC.
func (s *Impl) explain(token string, err error) error {
	if !strings.Contains(token, ":") && !dashedMAC.MatchString(token) {
		return err
	}
	if !errors.Is(err, ErrNameNotFound) && !errors.Is(err, ErrRegistryNotFound) {
		return err
	}
	_, macErr := wol.ValidateMAC(token)
	return macErr
}

// List returns every valid registry entry in file order.
func (s *Impl) List() ([]models.WakeTarget, error) {
	var targets []models.WakeTarget
	err := s.scan(func(fields []string, lineNo int) bool {
		target, err := s.targetFromFields(fields, lineNo)
		if err != nil {
			s.logger.Debug().Err(err).Int("line", lineNo).Msg("skipping invalid registry line")
			return true
		}
		targets = append(targets, *target)
		return true
	})
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// scan calls fn with the fields of every non-comment line until fn returns false.
func (s *Impl) scan(fn func(fields []string, lineNo int) bool) error {
	f, err := s.open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRegistryNotFound, s.path)
		}
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !fn(strings.Fields(trimmed), lineNo) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}
	return nil
}

func (s *Impl) targetFromFields(fields []string, lineNo int) (*models.WakeTarget, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: no MAC for %q (registry %s line %d)", wol.ErrInvalidMAC, fields[0], s.path, lineNo)
	}

	mac, err := wol.ValidateMAC(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w (registry %s line %d)", err, s.path, lineNo)
	}

	target := &models.WakeTarget{Name: fields[0], MACAddress: mac}
	if len(fields) > 2 {
		target.NetworkAddress = fields[2]
	}
	return target, nil
}
