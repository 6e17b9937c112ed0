// Command marionette-view plays the animations of a marionette project
// archive and reloads it when the file changes.
//
// Keys: Space play/stop, Left/Right step a frame, L toggle looping, P save
// a screenshot.
//
//	marionette-view -config view.toml -archive walk.zip -animation Walk
//
// With -script, a JSON tool script is replayed against the loaded document,
// one step per tick.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	fset := flag.NewFlagSet("marionette-view", flag.ExitOnError)
	configPath := fset.String("config", "marionette-view.toml", "TOML config file")
	var scratch Config
	scratch.Bind(fset)
	_ = fset.Parse(os.Args[1:])

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	// Flags override the file.
	fset = flag.NewFlagSet("marionette-view", flag.ExitOnError)
	fset.String("config", *configPath, "TOML config file")
	cfg.Bind(fset)
	_ = fset.Parse(os.Args[1:])
	if fset.NArg() > 0 && cfg.Archive == "" {
		cfg.Archive = fset.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	g, err := newGame(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	w, h := g.Layout(0, 0)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(w, h)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
