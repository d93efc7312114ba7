// register.go adds the built-in models to the sim registry. The init()
// runs when any package imports sim/models, which keeps sim free of an
// import on its own implementations.
package models

import "github.com/pksim-dev/pksim/sim"

func init() {
	sim.RegisterModel("pk1", func() sim.Model { return &OneCompartment{} })
	sim.RegisterModel("pk2", func() sim.Model { return &TwoCompartment{} })
	sim.RegisterModel("mm1", func() sim.Model { return &MichaelisMenten{} })
}
