// Command seedplans loads plan definitions from a YAML file and upserts
// them into the plan catalog collection. The API server only ever reads
// the catalog; this tool is how plans get into the database.
package main

import (
	"context"
	"flag"
	"os"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/brokerpad/pkg/config"
	"github.com/dmitrymomot/brokerpad/pkg/logger"
	mongopkg "github.com/dmitrymomot/brokerpad/pkg/mongo"
	"github.com/dmitrymomot/brokerpad/pkg/subscription"
)

func main() {
	path := flag.String("file", "plans.yaml", "path to the plans YAML file")
	flag.Parse()

	var cfg struct {
		Logger logger.Config
		Mongo  mongopkg.Config
	}
	config.MustLoad(&cfg)

	log := logger.New(cfg.Logger, logger.WithService("seedplans"))
	ctx := context.Background()

	plans, err := subscription.NewFileSource(*path).Load(ctx)
	if err != nil {
		log.Error("plan file load failed", logger.Error(err))
		os.Exit(1)
	}
	if len(plans) == 0 {
		log.Error("plan file contains no plans", "file", *path)
		os.Exit(1)
	}

	db, err := mongopkg.ConnectDatabase(ctx, cfg.Mongo)
	if err != nil {
		log.Error("mongo connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	coll := db.Collection(subscription.PlansCollection)
	for _, p := range plans {
		_, err := coll.ReplaceOne(ctx,
			bson.M{"planType": p.PlanType},
			p,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			log.Error("plan upsert failed", "plan_type", p.PlanType, logger.Error(err))
			os.Exit(1)
		}
		log.Info("plan seeded", "plan_type", p.PlanType, "price", p.Price, "active", p.IsActive)
	}

	log.Info("catalog seeded", "count", len(plans))
}
