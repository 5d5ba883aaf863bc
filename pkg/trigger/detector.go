package trigger

import (
	"strings"

	"github.com/tabletalk-io/tabletalk/pkg/logger"
	"github.com/tabletalk-io/tabletalk/pkg/transcript"
)

// Outcome reports one detection pass over the unscanned transcript tail.
type Outcome struct {
	Fired     bool
	FiredAt   int
	Record    transcript.Record
	NewOffset int
}

// Detector scans the transcript for the trigger word.
//
// Scan policy: every record appended since the offset is examined and the
// first match fires. The alternative (newest record only) can miss a
// mention buried under rapid-fire messages, which matters in a group chat;
// the cost is that a mention can surface late when the responder lagged.
type Detector struct {
	store       *transcript.Store
	offsets     *transcript.OffsetStore
	triggerWord string
	responder   string
}

func NewDetector(store *transcript.Store, offsets *transcript.OffsetStore, triggerWord, responderName string) *Detector {
	return &Detector{
		store:       store,
		offsets:     offsets,
		triggerWord: strings.ToLower(strings.TrimSpace(triggerWord)),
		responder:   responderName,
	}
}

// Evaluate scans records at positions >= offset. It performs no offset
// persistence; NewOffset always advances to the current transcript length.
func (d *Detector) Evaluate(offset int) (Outcome, error) {
	length, err := d.store.Len()
	if err != nil {
		return Outcome{}, err
	}
	outcome := Outcome{NewOffset: length}
	if length <= offset {
		outcome.NewOffset = offset
		return outcome, nil
	}

	entries, err := d.store.ReadFrom(offset)
	if err != nil {
		return Outcome{}, err
	}

	for _, e := range entries {
		// The responder's own messages never trigger it.
		if strings.EqualFold(e.Record.Sender, d.responder) {
			continue
		}
		if strings.Contains(strings.ToLower(e.Record.Message), d.triggerWord) {
			outcome.Fired = true
			outcome.FiredAt = e.Index
			outcome.Record = e.Record
			logger.InfoCF("trigger", "Trigger word detected", map[string]interface{}{
				"sender":   e.Record.Sender,
				"position": e.Index,
			})
			break
		}
	}
	return outcome, nil
}

// EvaluateNext loads the persisted offset, evaluates, and persists the new
// offset before returning. Persisting up front makes firing idempotent: a
// fired position can never fire again, even if the response cycle dies.
func (d *Detector) EvaluateNext() (Outcome, error) {
	offset, err := d.offsets.Load()
	if err != nil {
		return Outcome{}, err
	}

	outcome, err := d.Evaluate(offset)
	if err != nil {
		return Outcome{}, err
	}

	if outcome.NewOffset > offset {
		if err := d.offsets.Save(outcome.NewOffset); err != nil {
			return Outcome{}, err
		}
	}
	return outcome, nil
}
