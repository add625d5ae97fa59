// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Reading is the JSON payload published per probe per poll cycle.
type Reading struct {
	Device     string    `json:"device"`
	Family     string    `json:"family"`
	Celsius    float64   `json:"celsius"`
	Resolution int       `json:"resolution,omitempty"`
	Time       time.Time `json:"time"`
}

// publisher is a handle onto an MQTT broker connection. The connection is
// persistent: the paho client re-establishes it after a disconnect.
type publisher struct {
	conn  mqtt.Client
	topic string
}

func newPublisher(conf MqttConfig) (*publisher, error) {
	hostname, _ := os.Hostname()
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", conf.Host, conf.Port))
	opts.ClientID = "owtherm-" + hostname
	opts.Username = conf.User
	opts.Password = conf.Password
	opts.AutoReconnect = true

	conn := mqtt.NewClient(opts)
	if token := conn.Connect(); !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", conf.Host)
	} else if token.Error() != nil {
		return nil, token.Error()
	}
	return &publisher{conn: conn, topic: conf.Topic}, nil
}

// publish sends one reading under <topic>/<device id>.
func (p *publisher) publish(r Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	token := p.conn.Publish(p.topic+"/"+r.Device, 1, false, payload)
	token.Wait()
	return token.Error()
}

func (p *publisher) close() {
	p.conn.Disconnect(250)
}
