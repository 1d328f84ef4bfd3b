package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/perillaseed/spore"
	"github.com/perillaseed/spore/rlp"
)

var (
	listenFlag = cli.StringFlag{
		Name:  "listen",
		Usage: "address to accept inbound connections on, empty for outbound-only",
		Value: ":4000",
	}
	seedFlag = cli.StringSliceFlag{
		Name:  "seed",
		Usage: "host:port of a peer to dial at startup, may be repeated",
	}
	nameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "name announced on the chat method",
		Value: "anon",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML config file overriding the flags above",
	}
)

// fileConfig mirrors the flags above for TOML-file based configuration,
// loaded the way the teacher's executeContext.UnmashalConfig loads a
// per-service config struct.
type fileConfig struct {
	Listen string   `toml:"listen"`
	Seeds  []string `toml:"seeds"`
	Name   string   `toml:"name"`
}

func main() {
	app := cli.NewApp()
	app.Name = "sporenode"
	app.Usage = "demo chat host built on the spore overlay network"
	app.Flags = []cli.Flag{listenFlag, seedFlag, nameFlag, configFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sporenode:", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	fc := fileConfig{
		Listen: ctx.String(listenFlag.Name),
		Seeds:  ctx.StringSlice(seedFlag.Name),
		Name:   ctx.String(nameFlag.Name),
	}
	if path := ctx.String(configFlag.Name); path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return cli.NewExitError(fmt.Sprintf("reading config: %v", err), 1)
		}
	}

	seeds := make([]spore.Endpoint, 0, len(fc.Seeds))
	for _, s := range fc.Seeds {
		ep, err := spore.ParseEndpoint(s)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		seeds = append(seeds, ep)
	}

	n := spore.NewNode(spore.Config{
		ListenAddr: fc.Listen,
		Seeds:      seeds,
	})

	n.Handler("chat", func(p *spore.Peer, payload rlp.Value) {
		fmt.Printf("[%s] %s\n", p.String(), rlp.Bytes(payload))
	})
	n.OnConnect(func(p *spore.Peer) {
		fmt.Printf("* connected: %s (peers=%d)\n", p.String(), n.NumConnectedPeers())
	})
	n.OnDisconnect(func(p *spore.Peer) {
		fmt.Printf("* disconnected: %s (peers=%d)\n", p.String(), n.NumConnectedPeers())
	})

	errCh := make(chan error, 1)
	go func() { errCh <- n.Run() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go readStdinChat(n, fc.Name)

	select {
	case err := <-errCh:
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	case <-sigCh:
		n.Shutdown()
		return <-errCh
	}
}

func readStdinChat(n *spore.Node, name string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		n.Broadcast("chat", rlp.String(name+": "+line))
	}
}
