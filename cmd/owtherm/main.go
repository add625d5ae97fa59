// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// owtherm polls DS18B20/DS18S20 temperature probes behind a ds248x bridge
// and logs, and optionally publishes over MQTT, one reading per probe per
// cycle.
package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/onewire-go/owtherm/ds18x20"
	"github.com/onewire-go/owtherm/ds248x"
)

func main() {
	configPath := flag.String("config", "owtherm.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("host init: %v", err)
	}
	i2cBus, err := i2creg.Open(cfg.Bus.I2C)
	if err != nil {
		log.Fatalf("opening I²C bus: %v", err)
	}
	defer i2cBus.Close()

	opts := ds248x.DefaultOpts
	opts.PassivePullup = cfg.Bus.PassivePullup
	bus, err := ds248x.New(i2cBus, cfg.Bus.Addr, &opts)
	if err != nil {
		log.Fatalf("ds248x init: %v", err)
	}
	log.Printf("1-wire bridge ready: %s", bus)
	if cfg.Bus.Channel != nil {
		if err := bus.ChannelSelect(*cfg.Bus.Channel); err != nil {
			log.Fatalf("channel select: %v", err)
		}
	}

	var pub *publisher
	if cfg.Mqtt.Host != "" {
		if pub, err = newPublisher(cfg.Mqtt); err != nil {
			log.Fatalf("mqtt: %v", err)
		}
		defer pub.close()
		log.Printf("publishing to %s under %s", cfg.Mqtt.Host, cfg.Mqtt.Topic)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(cfg.Poll.Interval())
	defer ticker.Stop()

	pollCycle(bus, cfg, pub)
	for {
		select {
		case <-ticker.C:
			pollCycle(bus, cfg, pub)
		case s := <-stop:
			log.Printf("%s, exiting", s)
			return
		}
	}
}

// pollCycle rebuilds the probe set from scratch, broadcasts one conversion
// and reads every probe. Errors are logged and the cycle abandoned; the next
// tick starts over with a fresh discovery.
func pollCycle(bus *ds248x.Dev, cfg *Config, pub *publisher) {
	probes, err := ds18x20.Discover(bus)
	if err != nil {
		if errors.Is(err, ds18x20.ErrUnsupportedFamily) {
			log.Printf("discovery: %v (non-temperature device on the bus?)", err)
		} else {
			log.Printf("discovery: %v", err)
		}
		return
	}
	if len(probes) == 0 {
		log.Printf("no probes found")
		return
	}

	if bits := cfg.Poll.ResolutionBits; bits != 0 {
		for _, p := range probes {
			d, ok := p.(*ds18x20.DS18B20Dev)
			if !ok {
				continue
			}
			if d.Resolution() == ds18x20.Resolution(bits) {
				continue
			}
			if err := d.SetResolution(bits); err != nil {
				log.Printf("%s: set resolution: %v", d, err)
				return
			}
		}
	}

	if err := ds18x20.ConvertAll(bus); err != nil {
		log.Printf("convert: %v", err)
		return
	}

	now := time.Now().UTC()
	for _, p := range probes {
		t, err := p.ReadScratchPad()
		if err != nil {
			log.Printf("%s: read: %v", p, err)
			return
		}
		r := Reading{
			Device:  p.ID().String(),
			Family:  p.Family().String(),
			Celsius: t.Celsius(),
			Time:    now,
		}
		if d, ok := p.(*ds18x20.DS18B20Dev); ok {
			r.Resolution = int(d.Resolution())
			log.Printf("%s: %s (%s)", p, t, d.Resolution())
		} else {
			log.Printf("%s: %s", p, t)
		}
		if pub != nil {
			if err := pub.publish(r); err != nil {
				log.Printf("%s: publish: %v", p, err)
			}
		}
	}
}
