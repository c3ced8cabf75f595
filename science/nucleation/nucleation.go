/*
Copyright © 2019 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package nucleation provides models for the formation of new droplets
// from the vapor phase.
package nucleation

import (
	"fmt"
	"sort"

	"github.com/spatialmodel/aerosol"
)

// New returns the nucleation model with the given name. Valid names are
// "constant" and "classical".
func New(name string, p aerosol.Params, mix aerosol.Mixture) (aerosol.Nucleation, error) {
	allocator, ok := allocators[name]
	if !ok {
		return nil, fmt.Errorf("nucleation: invalid model %q; valid options are %v", name, Names())
	}
	return allocator(p, mix)
}

// allocators holds all available models.
var allocators = map[string]func(aerosol.Params, aerosol.Mixture) (aerosol.Nucleation, error){}

// Names returns the names of the available models.
func Names() []string {
	names := make([]string, 0, len(allocators))
	for n := range allocators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// composition returns the nucleus composition, which consists of the
// species named in p ("species"), by default the first condensable species.
func composition(p aerosol.Params, mix aerosol.Mixture) (int, []float64, error) {
	name, err := p.String("species", "")
	if err != nil {
		return 0, nil, err
	}
	var j int
	if name == "" {
		c := mix.Condensables()
		if len(c) == 0 {
			return 0, nil, fmt.Errorf("nucleation: the mixture has no condensable species")
		}
		j = c[0]
	} else if j, err = mix.Index(name); err != nil {
		return 0, nil, err
	}
	if !mix.Species[j].Condensable {
		return 0, nil, fmt.Errorf("nucleation: species %s is not condensable", mix.Species[j].Name)
	}
	w := make([]float64, mix.Len())
	w[j] = 1
	return j, w, nil
}
