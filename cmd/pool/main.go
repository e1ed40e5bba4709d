// Command pool generates a UCC excitation pool, prints its generators and optionally saves them to a SQLite database.
//
// For example, the singles and doubles of four electrons in eight spin orbitals:
//
//	pool -n 8 -alpha 2 -beta 2 -orders sd -db pool.db -name uccsd
//
// With -modals, a UVCC pool over vibrational modes is generated instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fumin/secondq/excitation"
	"github.com/fumin/secondq/fermion"
	"github.com/fumin/secondq/sparse"
	"github.com/fumin/secondq/store"
	"github.com/fumin/secondq/vibration"
)

var (
	numSpinOrbitals   = flag.Int("n", 4, "number of spin orbitals")
	alpha             = flag.Int("alpha", 1, "number of spin-up particles")
	beta              = flag.Int("beta", 1, "number of spin-down particles")
	orders            = flag.String("orders", "sd", "excitation orders, such as s, sd, sdt or 1,2")
	modals            = flag.String("modals", "", "comma separated number of modals per vibrational mode")
	generalized       = flag.Bool("generalized", false, "excite between any orbitals of the same spin")
	preserveSpin      = flag.Bool("preserve-spin", true, "forbid spin flips")
	maxSpinExcitation = flag.Int("max-spin-excitation", -1, "maximum excitations of a single spin, negative for no limit")
	dbPath            = flag.String("db", "", "SQLite database")
	poolName          = flag.String("name", "pool", "name of the pool in the database")
)

func parseOrders(s string) ([]int, error) {
	if !strings.Contains(s, ",") {
		if k, err := strconv.Atoi(s); err == nil {
			return []int{k}, nil
		}
		return excitation.ParseOrders(s)
	}
	ks := make([]int, 0)
	for _, f := range strings.Split(s, ",") {
		k, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%q", s))
		}
		ks = append(ks, k)
	}
	return ks, nil
}

func parseModals(s string) ([]int, error) {
	ms := make([]int, 0)
	for _, f := range strings.Split(s, ",") {
		m, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%q", s))
		}
		ms = append(ms, m)
	}
	return ms, nil
}

func save[F sparse.Flavor[F]](pool []*sparse.Op[F]) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s, err := store.Open(ctx, *dbPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer s.Close()
	if err := store.SavePool(ctx, s, *poolName, pool); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func printPool[F sparse.Flavor[F]](pool []*sparse.Op[F]) {
	for i, op := range pool {
		fmt.Printf("%d\t%s\n", i, op)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	ks, err := parseOrders(*orders)
	if err != nil {
		return errors.Wrap(err, "")
	}
	opt := excitation.NewOptions().
		Generalized(*generalized).
		PreserveSpin(*preserveSpin).
		MaxSpinExcitation(*maxSpinExcitation)

	if *modals != "" {
		numModals, err := parseModals(*modals)
		if err != nil {
			return errors.Wrap(err, "")
		}
		var pool []*vibration.Op
		pool, err = excitation.VibrationalPool(numModals, ks, opt)
		if err != nil {
			return errors.Wrap(err, "")
		}
		printPool(pool)
		if *dbPath != "" {
			if err := save(pool); err != nil {
				return errors.Wrap(err, "")
			}
		}
		log.Printf("%d vibrational excitations", len(pool))
		return nil
	}

	var pool []*fermion.Op
	pool, err = excitation.Pool(*numSpinOrbitals, [2]int{*alpha, *beta}, ks, opt)
	if err != nil {
		return errors.Wrap(err, "")
	}
	printPool(pool)
	if *dbPath != "" {
		if err := save(pool); err != nil {
			return errors.Wrap(err, "")
		}
	}
	log.Printf("%d fermionic excitations", len(pool))
	return nil
}
