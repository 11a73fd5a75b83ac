package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meronig/egsm-worker/engine"
)

const processXML = `<?xml version="1.0" encoding="UTF-8"?>
<ca:CompositeApplicationType xmlns:ca="http://www.example.org/ca">
  <ca:EventModel>
    <ca:Event id="e_start" name="e_start"/>
    <ca:Event id="e_a" name="e_a"/>
    <ca:Event id="e_a_done" name="e_a_done"/>
    <ca:Event id="e_fault" name="e_fault"/>
  </ca:EventModel>
  <ca:Component>
    <ca:GuardedStageModel>
      <ca:Stage id="Process">
        <ca:DataFlowGuard id="DFG_main" expression="GSM.isEventOccurring(e_start)"/>
        <ca:Milestone id="M_main">
          <ca:Condition id="M_main_c" expression="GSM.isMilestoneAchieved(M_A)"/>
        </ca:Milestone>
        <ca:SubStage id="A">
          <ca:DataFlowGuard id="DFG_A" expression="GSM.isEventOccurring(e_a)"/>
          <ca:FaultLogger id="FL_A" expression="GSM.isEventOccurring(e_fault)"/>
          <ca:Milestone id="M_A">
            <ca:Condition id="M_A_c" expression="GSM.isEventOccurring(e_a_done)"/>
          </ca:Milestone>
        </ca:SubStage>
      </ca:Stage>
    </ca:GuardedStageModel>
  </ca:Component>
</ca:CompositeApplicationType>`

const infoXSD = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="truck" pub="true" sub="false">
    <xs:complexType>
      <xs:attribute name="status" type="xs:string" use="required"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func newRequest(id string) *CreateRequest {
	return &CreateRequest{
		ID:                id,
		ProcessDefinition: processXML,
		InfoSchema:        infoXSD,
		Stakeholders:      []string{"acme"},
	}
}

func TestService_Create(t *testing.T) {
	service := New()
	ctx := context.Background()

	err := service.Create(ctx, newRequest("shipment/42__truck"))
	assert.Nil(t, err)
	assert.True(t, service.Exists("shipment/42__truck"))
	assert.Equal(t, 1, service.Len())

	details, err := service.Details("shipment/42__truck")
	assert.Nil(t, err)
	assert.Equal(t, "shipment", details.Type)
	assert.Equal(t, "42", details.InstanceID)
	assert.Equal(t, "truck", details.Perspective)
	assert.Equal(t, engine.LifecycleRunning, details.Status)

	err = service.Create(ctx, newRequest("shipment/42__truck"))
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestService_Create_errors(t *testing.T) {
	service := New()
	ctx := context.Background()

	testCases := []struct {
		description string
		request     *CreateRequest
		expected    error
	}{
		{
			description: "missing id",
			request:     &CreateRequest{ProcessDefinition: processXML},
			expected:    ErrMissingField,
		},
		{
			description: "missing process definition",
			request:     &CreateRequest{ID: "shipment/1__truck"},
			expected:    ErrMissingField,
		},
		{
			description: "malformed process definition",
			request:     &CreateRequest{ID: "shipment/1__truck", ProcessDefinition: "<ca:broken"},
			expected:    ErrMalformedDefinition,
		},
		{
			description: "malformed info schema",
			request:     &CreateRequest{ID: "shipment/1__truck", ProcessDefinition: processXML, InfoSchema: "<xs:broken"},
			expected:    ErrMalformedDefinition,
		},
		{
			description: "identity without perspective",
			request:     &CreateRequest{ID: "shipment-1", ProcessDefinition: processXML},
			expected:    ErrMalformedDefinition,
		},
	}
	for _, testCase := range testCases {
		err := service.Create(ctx, testCase.request)
		assert.True(t, errors.Is(err, testCase.expected), testCase.description)
	}
	assert.Equal(t, 0, service.Len())
}

// duplicateGuardXML passes the structural document checks but fails once the
// graph is wired, both substages claiming the same guard id.
const duplicateGuardXML = `<?xml version="1.0" encoding="UTF-8"?>
<ca:CompositeApplicationType xmlns:ca="http://www.example.org/ca">
  <ca:EventModel>
    <ca:Event id="e_start" name="e_start"/>
    <ca:Event id="e_a" name="e_a"/>
  </ca:EventModel>
  <ca:Component>
    <ca:GuardedStageModel>
      <ca:Stage id="Process">
        <ca:DataFlowGuard id="DFG_main" expression="GSM.isEventOccurring(e_start)"/>
        <ca:SubStage id="A">
          <ca:DataFlowGuard id="DFG_X" expression="GSM.isEventOccurring(e_a)"/>
        </ca:SubStage>
        <ca:SubStage id="B">
          <ca:DataFlowGuard id="DFG_X" expression="GSM.isEventOccurring(e_a)"/>
        </ca:SubStage>
      </ca:Stage>
    </ca:GuardedStageModel>
  </ca:Component>
</ca:CompositeApplicationType>`

func TestService_Create_failedLoadLeavesNoTrace(t *testing.T) {
	service := New(WithCapacity(1))
	ctx := context.Background()

	err := service.Create(ctx, &CreateRequest{
		ID:                "shipment/42__truck",
		ProcessDefinition: duplicateGuardXML,
	})
	assert.True(t, errors.Is(err, ErrMalformedDefinition))

	// a failed load leaves neither a registered instance nor a held slot
	assert.False(t, service.Exists("shipment/42__truck"))
	assert.Equal(t, 0, service.Len())
	assert.Empty(t, service.List())
	assert.True(t, service.HasFreeSlot())
	_, err = service.Lookup("shipment/42__truck")
	assert.True(t, errors.Is(err, ErrNotFound))

	// the id and the slot are immediately reusable
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__truck")))
}

func TestService_capacity(t *testing.T) {
	service := New(WithCapacity(2))
	ctx := context.Background()
	assert.Equal(t, 2, service.Capacity())

	assert.Nil(t, service.Create(ctx, newRequest("shipment/1__truck")))
	assert.True(t, service.HasFreeSlot())
	assert.Nil(t, service.Create(ctx, newRequest("shipment/2__truck")))
	assert.False(t, service.HasFreeSlot())

	err := service.Create(ctx, newRequest("shipment/3__truck"))
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	// removal frees the slot again
	_, err = service.Remove(ctx, "shipment/1__truck")
	assert.Nil(t, err)
	assert.Nil(t, service.Create(ctx, newRequest("shipment/3__truck")))
}

func TestService_Remove(t *testing.T) {
	service := New()
	ctx := context.Background()
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__truck")))

	assert.Nil(t, service.ProcessEvent(ctx, "shipment/42__truck", "e_start"))
	assert.Nil(t, service.ProcessEvent(ctx, "shipment/42__truck", "e_a"))
	assert.Nil(t, service.ProcessEvent(ctx, "shipment/42__truck", "e_a_done"))

	outcome, err := service.Remove(ctx, "shipment/42__truck")
	assert.Nil(t, err)
	assert.Equal(t, OutcomeSuccess, outcome.Result)
	assert.False(t, service.Exists("shipment/42__truck"))

	byName := map[string]StageOutcome{}
	for _, stage := range outcome.Stages {
		byName[stage.Name] = stage
	}
	assert.Equal(t, 2, len(byName))
	assert.Equal(t, engine.StateClosed, byName["Process"].State)
	assert.Equal(t, engine.StateClosed, byName["A"].State)
	assert.Equal(t, engine.ComplianceOnTime, byName["A"].Compliance)

	_, err = service.Remove(ctx, "shipment/42__truck")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestService_Remove_faultyOutcome(t *testing.T) {
	service := New()
	ctx := context.Background()
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__truck")))

	assert.Nil(t, service.ProcessEvent(ctx, "shipment/42__truck", "e_start"))
	assert.Nil(t, service.ProcessEvent(ctx, "shipment/42__truck", "e_a"))
	assert.Nil(t, service.ProcessEvent(ctx, "shipment/42__truck", "e_fault"))

	outcome, err := service.Remove(ctx, "shipment/42__truck")
	assert.Nil(t, err)
	assert.Equal(t, OutcomeFaulty, outcome.Result)

	byName := map[string]StageOutcome{}
	for _, stage := range outcome.Stages {
		byName[stage.Name] = stage
	}
	assert.Equal(t, engine.StatusFaulty, byName["A"].Status)
}

func TestService_ProcessEvent(t *testing.T) {
	service := New()
	ctx := context.Background()
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__truck")))

	err := service.ProcessEvent(ctx, "missing", "e_start")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NotNil(t, service.ProcessEvent(ctx, "shipment/42__truck", "no_such_event"))
	assert.Nil(t, service.ProcessEvent(ctx, "shipment/42__truck", "e_start"))
}

func TestService_UpdateInformationModel(t *testing.T) {
	service := New()
	ctx := context.Background()
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__truck")))

	assert.Nil(t, service.UpdateInformationModel(ctx, "shipment/42__truck", "truck", "moving"))
	assert.NotNil(t, service.UpdateInformationModel(ctx, "shipment/42__truck", "trailer", "moving"))

	err := service.UpdateInformationModel(ctx, "missing", "truck", "moving")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestService_Reset(t *testing.T) {
	service := New()
	ctx := context.Background()
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__truck")))
	assert.Nil(t, service.ProcessEvent(ctx, "shipment/42__truck", "e_start"))

	instance, err := service.Lookup("shipment/42__truck")
	assert.Nil(t, err)
	assert.NotEqual(t, 0, instance.Steps())

	assert.Nil(t, service.Reset("shipment/42__truck"))
	outcome, err := service.Remove(ctx, "shipment/42__truck")
	assert.Nil(t, err)
	for _, stage := range outcome.Stages {
		assert.Equal(t, engine.StateUnopened, stage.State)
	}

	assert.True(t, errors.Is(service.Reset("missing"), ErrNotFound))
}

func TestService_SetLifecycleStatus(t *testing.T) {
	service := New()
	ctx := context.Background()
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__truck")))

	assert.Nil(t, service.SetLifecycleStatus("shipment/42__truck", engine.LifecycleFinished))
	details, err := service.Details("shipment/42__truck")
	assert.Nil(t, err)
	assert.Equal(t, engine.LifecycleFinished, details.Status)

	assert.NotNil(t, service.SetLifecycleStatus("shipment/42__truck", "PAUSED"))
	assert.True(t, errors.Is(service.SetLifecycleStatus("missing", engine.LifecycleFinished), ErrNotFound))
}

func TestService_List(t *testing.T) {
	service := New()
	ctx := context.Background()
	assert.Nil(t, service.Create(ctx, newRequest("shipment/2__truck")))
	assert.Nil(t, service.Create(ctx, newRequest("order/9__warehouse")))
	assert.Nil(t, service.Create(ctx, newRequest("shipment/1__truck")))

	listed := service.List()
	if !assert.Equal(t, 3, len(listed)) {
		t.FailNow()
	}
	assert.Equal(t, "order/9__warehouse", listed[0].Name)
	assert.Equal(t, "shipment/1__truck", listed[1].Name)
	assert.Equal(t, "shipment/2__truck", listed[2].Name)
	assert.Equal(t, 1, listed[0].Index)
	assert.Equal(t, 3, listed[2].Index)
}

func TestService_EnginesOfProcess(t *testing.T) {
	service := New()
	ctx := context.Background()
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__truck")))
	assert.Nil(t, service.Create(ctx, newRequest("shipment/42__warehouse")))
	assert.Nil(t, service.Create(ctx, newRequest("shipment/7__truck")))

	perspectives := service.EnginesOfProcess("42")
	if !assert.Equal(t, 2, len(perspectives)) {
		t.FailNow()
	}
	assert.Equal(t, "truck", perspectives[0].Perspective)
	assert.Equal(t, "warehouse", perspectives[1].Perspective)

	assert.Empty(t, service.EnginesOfProcess("404"))
}

func TestService_CreateFromPayload(t *testing.T) {
	service := New()
	ctx := context.Background()

	err := service.CreateFromPayload(ctx, map[string]interface{}{
		"id":                "shipment/42__truck",
		"processDefinition": processXML,
		"infoSchema":        infoXSD,
		"stakeholders":      []interface{}{"acme"},
	})
	assert.Nil(t, err)
	assert.True(t, service.Exists("shipment/42__truck"))

	instance, err := service.Lookup("shipment/42__truck")
	assert.Nil(t, err)
	assert.EqualValues(t, []string{"acme"}, instance.Stakeholders())

	err = service.CreateFromPayload(ctx, map[string]interface{}{"processDefinition": processXML})
	assert.True(t, errors.Is(err, ErrMissingField))
}
