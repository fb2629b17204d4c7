package weather_station

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeripheralInitialisation loads the periph host drivers and opens the I²C
// bus the display is wired to. An empty name opens the first bus.
func PeripheralInitialisation(busName string, logger *logrus.Logger) (i2c.BusCloser, error) {
	// Make sure peripheral is initialized.
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	logger.Debugf("Using drivers:")
	for _, driver := range state.Loaded {
		logger.Debugf("- %s", driver)
	}

	logger.Debugf("Drivers skipped:")
	for _, failure := range state.Skipped {
		logger.Debugf("- %s: %s", failure.D, failure.Err)
	}

	// Having drivers failing to load may not require process termination. It
	// is possible to continue to run in partial failure mode.
	logger.Debugf("Drivers failed to load:")
	for _, failure := range state.Failed {
		logger.Debugf("- %s: %v", failure.D, failure.Err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("cannot open a bus: %w", err)
	}
	logger.Debugf("I2C bus open call successful. Got: %v", bus.String())
	return bus, nil
}
