package audiomon

import (
	"errors"

	"github.com/breeze-rmm/micwatch/internal/platform"
	"github.com/breeze-rmm/micwatch/pkg/models"
	"go.uber.org/zap"
)

const defaultEnumerationMessage = "audio process enumeration failed"

type enumKind int

const (
	kindInput enumKind = iota
	kindInputResult
	kindOutputResult
)

func (k enumKind) capability() platform.Capability {
	switch k {
	case kindInputResult:
		return platform.CapInputProcessesWithResult
	case kindOutputResult:
		return platform.CapOutputProcessesWithResult
	default:
		return platform.CapInputProcesses
	}
}

// Snapshot is the outcome of one enumeration. Legacy and Envelope render the
// same outcome in the two result shapes.
type Snapshot struct {
	processes []string
	err       error
}

// Legacy returns the bare descriptor list, or the enumeration error.
func (s Snapshot) Legacy() ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, len(s.processes))
	copy(out, s.processes)
	return out, nil
}

// Envelope returns the outcome as a ResultEnvelope.
func (s Snapshot) Envelope() models.ResultEnvelope {
	if s.err != nil {
		return models.FailureEnvelope(enumerationError(s.err))
	}
	out := make([]string, len(s.processes))
	copy(out, s.processes)
	return models.SuccessEnvelope(out)
}

// snapshot runs the provider enumeration for kind exactly once.
func (f *Facade) snapshot(kind enumKind) Snapshot {
	c := kind.capability()
	if !f.Supports(c) {
		return Snapshot{err: f.unsupported(c)}
	}

	var (
		procs []string
		err   error
	)
	switch kind {
	case kindOutputResult:
		procs, err = f.provider.(platform.OutputLister).OutputAudioProcesses()
	default:
		procs, err = f.provider.(platform.InputLister).InputAudioProcesses()
	}
	if err != nil {
		f.logger.Debug("audio process enumeration failed",
			zap.String("capability", c.String()), zap.Error(err))
		return Snapshot{err: err}
	}
	return Snapshot{processes: dedupe(procs)}
}

// dedupe drops repeated descriptors keeping first-seen order. Empty
// placeholder descriptors are kept as returned.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		if p != "" {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
		}
		out = append(out, p)
	}
	return out
}

// enumerationError extracts code and domain from err, filling defaults when
// the provider did not supply them.
func enumerationError(err error) *models.EnumerationError {
	out := &models.EnumerationError{
		Code:    models.CodeUnknown,
		Domain:  models.EnumerationDomain,
		Message: err.Error(),
	}
	var ee *models.EnumerationError
	if errors.As(err, &ee) {
		out.Code = ee.Code
		if ee.Domain != "" {
			out.Domain = ee.Domain
		}
		out.Message = ee.Message
	}
	if out.Message == "" {
		out.Message = defaultEnumerationMessage
	}
	return out
}
