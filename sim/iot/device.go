package iot

import (
	"github.com/sirupsen/logrus"

	"github.com/iot-sim/iot-sim/sim"
	"github.com/iot-sim/iot-sim/sim/metrics"
)

// DeviceState represents the lifecycle state of one device request.
type DeviceState string

const (
	DeviceCreated         DeviceState = "created"
	DeviceWaitingForSlot  DeviceState = "waiting_for_gateway_slot"
	DeviceBeingProcessed  DeviceState = "being_processed"
	DeviceEscalating      DeviceState = "escalating"
	DeviceCloudProcessing DeviceState = "being_processed_by_cloud"
	DeviceCompleted       DeviceState = "completed"
)

// Device is one request/response cycle of a sensor. It exists only for
// the duration of that cycle.
type Device struct {
	Name     string
	Priority int
	State    DeviceState

	StartTime     float64 // request sent
	ProcessedTime float64 // gateway slot granted
	AnsweredTime  float64 // answer received
	Escalated     bool
}

// NewDevice creates a device in the created state.
func NewDevice(name string, priority int) *Device {
	return &Device{Name: name, Priority: priority, State: DeviceCreated}
}

// Run is the device's process body: acquire a gateway slot, get served,
// and emit a latency record to c.
func (d *Device) Run(p *sim.Process, g *Gateway, c metrics.Collector) {
	d.StartTime = p.Now()
	logrus.Infof("%s sending request at %.2f", d.Name, d.StartTime)

	d.State = DeviceWaitingForSlot
	req := p.Acquire(g.Pool(), d.Priority)
	defer req.Release()

	d.ProcessedTime = p.Now()
	d.State = DeviceBeingProcessed
	logrus.Infof("%s gets processed at %.2f", d.Name, d.ProcessedTime)

	g.Serve(p, d)

	d.AnsweredTime = p.Now()
	d.State = DeviceCompleted
	logrus.Infof("%s receives answer at %.2f", d.Name, d.AnsweredTime)
	c.Record(metrics.NewLatencyRecord(d.Name, d.StartTime, d.ProcessedTime, d.AnsweredTime, d.Escalated))
}
