package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [rules.json]",
		Short: "Run the HTTP demo adapter over /v1/helios/*",
		Long: "Run the HTTP demo adapter over /v1/helios/*. This is demonstration\n" +
			"wiring for the out-of-scope HTTP surface, not a production RPC layer.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var handlers *Handlers
			if len(args) == 1 {
				m, err := compileFile(args[0])
				if err != nil {
					return err
				}
				handlers = NewHandlersWithModel(m)
			} else {
				handlers = NewHandlers()
			}

			gin.SetMode(gin.ReleaseMode)
			router := gin.New()
			router.Use(gin.Recovery())
			v1 := router.Group("/v1")
			RegisterRoutes(v1, handlers)

			fmt.Fprintf(os.Stderr, "helios serve: listening on %s\n", addr)
			return router.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
