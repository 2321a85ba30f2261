package cmd

/*
Copyright © 2019 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

import (
	"context"
	"os"

	"github.com/bkoushik11/flight-tracking-backend/internal"
	"github.com/bkoushik11/flight-tracking-backend/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the full tracking service with REST API and websocket fan-out",
	Long: `Run the track engine together with the REST API and the websocket
	endpoint. Subscribers receive the full track list every cycle and
	per-track updates for their subscribed topics.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Initialize config
		initConfig()

		engine := internal.NewEngine(log, *conf)

		if sinker, params, err := internal.BuildSinker(*conf, log); err != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Fatal("Unable to build sinker")
		} else if sinker != nil {
			if errInit := sinker.Init(ctx, params); errInit != nil {
				log.WithContext(ctx).WithFields(logrus.Fields{
					"Error": errInit,
				}).Fatal("Unable to init sinker")
			}
			engine.WithSinker(sinker)
		}

		go func() {
			if err := engine.Run(ctx); err != nil {
				log.WithContext(ctx).WithFields(logrus.Fields{
					"Error": err,
				}).Error("Engine stopped with error")
			}
		}()

		srv := server.New(log, *conf, engine)
		if err := srv.Run(ctx); err != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Error("Error in serve processing")
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&cfgFile, "config", "config_flighttracking.toml", "config file")
}
