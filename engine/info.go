package engine

import (
	"strconv"
	"time"

	"github.com/meronig/egsm-worker/internal/clock"
)

// Attribute is one inbound attribute update for an information entity.
type Attribute struct {
	Name  string
	Value string
}

// AttributeRecord is the stored state of one schema-declared attribute,
// including every distinct value observed so far.
type AttributeRecord struct {
	Name          string
	Type          string
	Use           string
	Value         string
	Timestamp     time.Time
	LearnedDomain []string
}

func newAttributeRecord(name, attrType, use string) *AttributeRecord {
	record := &AttributeRecord{Name: name, Type: attrType, Use: use, Timestamp: clock.Now()}
	if name == "timestamp" && attrType == "xs:dateTime" {
		record.Value = strconv.FormatInt(clock.UnixMilli(), 10)
	}
	return record
}

func (a *AttributeRecord) changeValue(newValue string) {
	if a.Value == newValue {
		return
	}
	a.Value = newValue
	a.Timestamp = clock.Now()
}

func (a *AttributeRecord) learn(value string) {
	for _, known := range a.LearnedDomain {
		if known == value {
			return
		}
	}
	a.LearnedDomain = append(a.LearnedDomain, value)
}

// InfoEntity is one externally updatable information-model entity with its
// ordered attribute records.
type InfoEntity struct {
	engine     *Engine
	Name       string
	Pub        bool
	Sub        bool
	Dependents []string

	attributes map[string]*AttributeRecord
	attrNames  []string
}

func newInfoEntity(e *Engine, name string, pub, sub bool) *InfoEntity {
	return &InfoEntity{engine: e, Name: name, Pub: pub, Sub: sub, attributes: make(map[string]*AttributeRecord)}
}

func (n *InfoEntity) addAttribute(name, attrType, use string) {
	if _, ok := n.attributes[name]; ok {
		return
	}
	n.attributes[name] = newAttributeRecord(name, attrType, use)
	n.attrNames = append(n.attrNames, name)
}

// reset discards every attribute value and learned domain, re-applying the
// schema-time initialisation (a fresh timestamp for xs:dateTime attributes).
func (n *InfoEntity) reset() {
	for _, name := range n.attrNames {
		record := n.attributes[name]
		n.attributes[name] = newAttributeRecord(record.Name, record.Type, record.Use)
	}
}

// Attribute returns the record for a schema-declared attribute, or nil.
func (n *InfoEntity) Attribute(name string) *AttributeRecord {
	return n.attributes[name]
}

// Attributes returns the records in schema declaration order.
func (n *InfoEntity) Attributes() []*AttributeRecord {
	ret := make([]*AttributeRecord, 0, len(n.attrNames))
	for _, name := range n.attrNames {
		ret = append(ret, n.attributes[name])
	}
	return ret
}

// ChangeAttributes applies an inbound update. A change of the status
// attribute pulses the paired lifecycle events (name_l, name_e) and
// re-evaluates dependent process flow guards; any other update pulses the
// plain entity event. The two emission forms never combine.
func (n *InfoEntity) ChangeAttributes(updates []Attribute) {
	changedStatus := false
	for _, update := range updates {
		record := n.attributes[update.Name]
		if record == nil {
			continue
		}
		if record.Value != update.Value {
			record.changeValue(update.Value)
			if record.Name == "status" {
				changedStatus = true
			}
		}
	}

	if changedStatus {
		lifecycle := n.engine.events[n.Name+"_l"]
		execution := n.engine.events[n.Name+"_e"]
		if lifecycle != nil && execution != nil {
			lifecycle.Emit()
			execution.Emit()
			for _, name := range n.Dependents {
				if condition := n.engine.conditions[name]; condition != nil && condition.Type == ProcessFlowGuard {
					condition.Update(false)
				}
			}
		}
		return
	}
	if event := n.engine.events[n.Name]; event != nil {
		event.Emit()
	}
}
