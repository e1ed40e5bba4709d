// Command exactdiag diagonalizes Fermi-Hubbard lattices and molecular integrals in fixed spin sectors.
//
// Problems are read from a YAML file given by -c, for example
//
//	problems:
//	  - name: dimer
//	    lattice: [2, 1]
//	    t: 1
//	    u: [0, 2, 4, 8]
//	    particles: [1, 1]
//	  - name: h2
//	    particles: [1, 1]
//	    integrals:
//	      constant: 0.7
//	      one: [[-1.25, 0], [0, -0.47]]
//	      two:
//	        - {index: [0, 0, 0, 0], value: 0.67}
//
// Without -c, a sweep of chains and square lattices at half filling is solved.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fumin/secondq"
	"github.com/fumin/secondq/fermion"
	"github.com/fumin/secondq/fock"
	"github.com/fumin/secondq/property"
)

const (
	fnameDone       = "done.txt"
	fnameStatistics = "statistics.txt"
	dirHamiltonian  = "hamiltonian"
)

var (
	runDir     = flag.String("d", filepath.Join("runs", "exactdiag"), "run directory")
	configPath = flag.String("c", "", "YAML problem file")
	writeCOO   = flag.Bool("coo", false, "write the Hamiltonian of each run in COO format")
)

// Integrals are spatial orbital integrals.
// One and two body integrals are rounded to float32 when converted into tensors, the constant keeps double precision.
type Integrals struct {
	Constant float64     `yaml:"constant"`
	One      [][]float64 `yaml:"one"`
	Two      []struct {
		Index [4]int  `yaml:"index"`
		Value float64 `yaml:"value"`
	} `yaml:"two"`
}

type Problem struct {
	Name      string     `yaml:"name"`
	Lattice   [2]int     `yaml:"lattice"`
	T         float64    `yaml:"t"`
	U         []float64  `yaml:"u"`
	Particles [2]int     `yaml:"particles"`
	Integrals *Integrals `yaml:"integrals"`
}

type Config struct {
	Problems []Problem `yaml:"problems"`
}

// run is a single Hamiltonian to diagonalize.
type run struct {
	name      string
	particles [2]int

	hamiltonian func() (*fermion.Op, error)
}

type Statistics struct {
	Name string
	secondq.Statistics
}

func readConfig(fpath string) (Config, error) {
	b, err := os.ReadFile(fpath)
	if err != nil {
		return Config{}, errors.Wrap(err, "")
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, errors.Wrap(err, "")
	}
	return c, nil
}

func defaultConfig() Config {
	var c Config
	for _, n := range [][2]int{{2, 1}, {4, 1}, {6, 1}, {2, 2}, {3, 2}} {
		half := n[0] * n[1] / 2
		c.Problems = append(c.Problems, Problem{
			Name:      fmt.Sprintf("%dx%d", n[0], n[1]),
			Lattice:   n,
			T:         1,
			U:         []float64{0, 1, 2, 4, 8, 16},
			Particles: [2]int{half, half},
		})
	}
	return c
}

func (p Problem) runs() ([]run, error) {
	if p.Integrals != nil {
		integrals := *p.Integrals
		r := run{name: p.Name, particles: p.Particles, hamiltonian: func() (*fermion.Op, error) {
			return integrals.hamiltonian()
		}}
		return []run{r}, nil
	}

	if p.Lattice[0] < 1 || p.Lattice[1] < 1 {
		return nil, errors.Errorf("%s %#v", p.Name, p.Lattice)
	}
	runs := make([]run, 0, len(p.U))
	for _, u := range p.U {
		r := run{
			name:      filepath.Join(p.Name, strconv.FormatFloat(u, 'f', -1, 64)),
			particles: p.Particles,
			hamiltonian: func() (*fermion.Op, error) {
				return secondq.Hubbard(p.Lattice, complex(p.T, 0), complex(u, 0))
			},
		}
		runs = append(runs, r)
	}
	return runs, nil
}

func (in Integrals) hamiltonian() (*fermion.Op, error) {
	n := len(in.One)
	h1 := tensor.Zeros(n, n)
	for i, row := range in.One {
		if len(row) != n {
			return nil, errors.Errorf("%d %#v", i, row)
		}
		for j, v := range row {
			h1.SetAt([]int{i, j}, complex(float32(v), 0))
		}
	}

	var h2 *tensor.Dense
	if len(in.Two) > 0 {
		h2 = tensor.Zeros(n, n, n, n)
		for _, e := range in.Two {
			for _, idx := range e.Index {
				if idx < 0 || idx >= n {
					return nil, errors.Errorf("%#v", e)
				}
			}
			h2.SetAt(e.Index[:], complex(float32(e.Value), 0))
		}
	}

	energy, err := property.FromSpatialIntegrals(complex(in.Constant, 0), h1, h2)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	ops, err := energy.SecondQOps()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return ops[energy.Name()], nil
}

func solve(dir string, r run) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	h, err := r.hamiltonian()
	if err != nil {
		return errors.Wrap(err, "")
	}
	sector, err := fock.Spin(h.RegisterLength()/2, r.particles[0], r.particles[1])
	if err != nil {
		return errors.Wrap(err, "")
	}

	if *writeCOO {
		m, err := fock.Build(h, sector)
		if err != nil {
			return errors.Wrap(err, "")
		}
		hDir := filepath.Join(dir, dirHamiltonian)
		if err := os.MkdirAll(hDir, os.ModePerm); err != nil {
			return errors.Wrap(err, "")
		}
		if err := m.WriteCOO(hDir); err != nil {
			return errors.Wrap(err, "")
		}
	}

	stats, err := secondq.GetStatistics(h, sector)
	if err != nil {
		return errors.Wrap(err, "")
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(dir, fnameStatistics), b, 0644); err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func gather(dir string, runs []run) ([]Statistics, error) {
	stats := make([]Statistics, 0, len(runs))
	for _, r := range runs {
		b, err := os.ReadFile(filepath.Join(dir, r.name, fnameStatistics))
		if err != nil {
			return nil, errors.Wrap(err, r.name)
		}
		s := Statistics{Name: r.name}
		if err := json.Unmarshal(b, &s.Statistics); err != nil {
			return nil, errors.Wrap(err, r.name)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	config := defaultConfig()
	if *configPath != "" {
		var err error
		config, err = readConfig(*configPath)
		if err != nil {
			return errors.Wrap(err, "")
		}
	}
	runs := make([]run, 0)
	for _, p := range config.Problems {
		pruns, err := p.runs()
		if err != nil {
			return errors.Wrap(err, "")
		}
		runs = append(runs, pruns...)
	}

	// Solve for the ground states.
	for _, r := range runs {
		if err := solve(filepath.Join(*runDir, r.name), r); err != nil {
			return errors.Wrap(err, r.name)
		}
		log.Printf("%s %v", r.name, r.particles)
	}

	// Gather results and print them.
	stats, err := gather(*runDir, runs)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("name,e0,e1,n,m,d\n")
	for _, s := range stats {
		e1 := s.EigenValue[0]
		if len(s.EigenValue) > 1 {
			e1 = s.EigenValue[1]
		}
		fmt.Printf("%s,%f,%f,%f,%f,%f\n", s.Name, s.EigenValue[0], e1, s.ParticleNumber, s.Magnetization, s.DoubleOccupancy)
	}
	return nil
}
