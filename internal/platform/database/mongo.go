package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskini/internal/platform/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	MongoClient *mongo.Client
	MongoDB     *mongo.Database
)

func ConnectMongo() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	MongoClient, err = mongo.Connect(ctx, options.Client().
		ApplyURI(config.AppConfig.MongoURI).
		SetMaxPoolSize(25))
	if err != nil {
		log.Fatalf("Error opening MongoDB client: %v", err)
	}

	if err = MongoClient.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("Error connecting to MongoDB: %v", err)
	}

	MongoDB = MongoClient.Database(config.AppConfig.MongoDatabase)
	fmt.Println("Successfully connected to MongoDB!")
}

func CloseMongo() {
	if MongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := MongoClient.Disconnect(ctx); err != nil {
			log.Printf("WARN: MongoDB disconnect: %v", err)
		}
		fmt.Println("MongoDB connection closed.")
	}
}
