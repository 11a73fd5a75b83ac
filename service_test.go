package egsm_test

import (
	"context"
	"embed"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	_ "github.com/viant/afs/embed"

	egsm "github.com/meronig/egsm-worker"
	"github.com/meronig/egsm-worker/engine"
	"github.com/meronig/egsm-worker/service/event"
	"github.com/meronig/egsm-worker/service/registry"
)

//go:embed testdata/*
var embedFS embed.FS

func newTestService(t *testing.T, options ...egsm.Option) *egsm.Service {
	t.Helper()
	options = append([]egsm.Option{
		egsm.WithMetaFsOptions(&embedFS),
		egsm.WithMetaBaseURL("embed:///testdata"),
	}, options...)
	return egsm.New(options...)
}

func TestService_CreateFromURLs(t *testing.T) {
	srv := newTestService(t)
	ctx := context.Background()

	err := srv.CreateFromURLs(ctx, "shipment/42__truck", "shipment.xml", "truck.xsd", []string{"acme"})
	assert.Nil(t, err)
	assert.True(t, srv.Registry().Exists("shipment/42__truck"))

	details, err := srv.Registry().Details("shipment/42__truck")
	assert.Nil(t, err)
	assert.Equal(t, "shipment", details.Type)
	assert.Equal(t, "truck", details.Perspective)

	err = srv.CreateFromURLs(ctx, "shipment/43__truck", "missing.xml", "", nil)
	assert.NotNil(t, err)
}

func TestService_endToEnd(t *testing.T) {
	srv := newTestService(t)
	ctx := context.Background()

	stageEvents := event.PublisherOf[engine.StageLog](srv.Events())

	err := srv.CreateFromURLs(ctx, "shipment/42__truck", "shipment.xml", "truck.xsd", []string{"acme"})
	assert.Nil(t, err)

	reg := srv.Registry()
	assert.Nil(t, reg.ProcessEvent(ctx, "shipment/42__truck", "e_depart"))
	assert.Nil(t, reg.ProcessEvent(ctx, "shipment/42__truck", "e_pickup"))
	assert.Nil(t, reg.ProcessEvent(ctx, "shipment/42__truck", "e_pickup_done"))

	// delivery opens only once the truck reports arrival
	assert.Nil(t, reg.ProcessEvent(ctx, "shipment/42__truck", "e_deliver"))
	instance, err := reg.Lookup("shipment/42__truck")
	assert.Nil(t, err)
	diagram := instance.Diagram()

	stageByName := map[string]*engine.StageView{}
	var collect func(views []*engine.StageView)
	collect = func(views []*engine.StageView) {
		for _, view := range views {
			stageByName[view.Name] = view
			collect(view.SubStages)
		}
	}
	collect(diagram)
	assert.Equal(t, engine.StateUnopened, stageByName["Delivery"].State)

	assert.Nil(t, reg.UpdateInformationModel(ctx, "shipment/42__truck", "truck", "arrived"))
	assert.Nil(t, reg.ProcessEvent(ctx, "shipment/42__truck", "e_deliver"))
	assert.Nil(t, reg.ProcessEvent(ctx, "shipment/42__truck", "e_deliver_done"))

	outcome, err := reg.Remove(ctx, "shipment/42__truck")
	assert.Nil(t, err)
	assert.Equal(t, registry.OutcomeSuccess, outcome.Result)

	// stage transitions were fanned out through the event service
	consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	stageEvent, err := stageEvents.Consume(consumeCtx)
	assert.Nil(t, err)
	assert.Equal(t, "shipment", stageEvent.Context.ProcessType)
	assert.Equal(t, "42", stageEvent.Context.InstanceID)
	assert.NotEmpty(t, stageEvent.Data.StageName)
}

func TestService_lifecycleEvents(t *testing.T) {
	srv := newTestService(t)
	ctx := context.Background()

	lifecycleEvents := event.PublisherOf[engine.LifecycleEvent](srv.Events())

	assert.Nil(t, srv.CreateFromURLs(ctx, "shipment/42__truck", "shipment.xml", "", nil))
	_, err := srv.Registry().Remove(ctx, "shipment/42__truck")
	assert.Nil(t, err)

	consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	created, err := lifecycleEvents.Consume(consumeCtx)
	assert.Nil(t, err)
	assert.Equal(t, engine.LifecycleCreated, created.Data.Type)
	assert.Equal(t, "shipment/42__truck", created.Data.Process.EngineID)

	destructed, err := lifecycleEvents.Consume(consumeCtx)
	assert.Nil(t, err)
	assert.Equal(t, engine.LifecycleDestructed, destructed.Data.Type)
}

func TestService_configuredCapacity(t *testing.T) {
	srv := newTestService(t, egsm.WithCapacity(1))
	ctx := context.Background()

	assert.Nil(t, srv.CreateFromURLs(ctx, "shipment/1__truck", "shipment.xml", "", nil))
	err := srv.CreateFromURLs(ctx, "shipment/2__truck", "shipment.xml", "", nil)
	assert.NotNil(t, err)
	assert.Equal(t, 1, srv.Registry().Capacity())
}
