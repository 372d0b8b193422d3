package commands

import "fmt"

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	p, closeFn, err := root.OpenPipeline(g, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := p.Clean()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d entries from %s\n", n, p.OutputDir())
	return nil
}
