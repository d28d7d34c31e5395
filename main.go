// Command sdis-maekawa simulates distributed mutual exclusion and compares
// Ricart-Agrawala against Maekawa light and heavy demand under the same
// load. It prompts for the node count, the number of concurrent
// requesters and the critical-section hold time, then runs the three
// protocols back to back and prints each run's metrics.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/node"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/report"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/sim"
)

func main() {
	delay := flag.Duration("delay", 500*time.Millisecond, "simulated network delay per message")
	tracePath := flag.String("trace", "", "append a JSONL event trace to this file")
	verbose := flag.Bool("v", false, "per-node protocol logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	in := bufio.NewReader(os.Stdin)
	n, err := promptInt(in, "Total nodes (N): ")
	if err != nil {
		log.Fatal(err)
	}
	k, err := promptInt(in, "Requesters (k): ")
	if err != nil {
		log.Fatal(err)
	}
	csSecs, err := promptFloat(in, "CS hold time (s): ")
	if err != nil {
		log.Fatal(err)
	}

	var trace *os.File
	if *tracePath != "" {
		trace, err = os.OpenFile(*tracePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatal(err)
		}
		defer trace.Close()
	}

	protocols := []node.Protocol{node.RicartAgrawala, node.MaekawaLight, node.MaekawaHeavy}
	for _, p := range protocols {
		cfg := sim.Config{
			Protocol:     p,
			N:            n,
			K:            k,
			CSDuration:   time.Duration(csSecs * float64(time.Second)),
			NetworkDelay: *delay,
		}
		fmt.Printf("\n>>> Running: %s <<<\n", p)
		sc := sim.Scenario{Config: cfg}
		if trace != nil {
			sc.Trace = trace
		}
		stats, err := sim.Run(context.Background(), sc)
		if err != nil {
			log.Fatal(err)
		}
		report.Render(os.Stdout, cfg, stats)
	}
}

func promptInt(in *bufio.Reader, prompt string) (int, error) {
	line, err := readLine(in, prompt)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("expected an integer, got %q", line)
	}
	return v, nil
}

func promptFloat(in *bufio.Reader, prompt string) (float64, error) {
	line, err := readLine(in, prompt)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", line)
	}
	return v, nil
}

func readLine(in *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
