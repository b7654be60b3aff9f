package server

import (
	"net/http"
	"time"

	"github.com/gurre/awsgate/envelope"
	"github.com/gurre/awsgate/queue"
	"github.com/gurre/awsgate/topic"
)

func (app *App) sendMessage(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to send message to SQS queue"
	start := time.Now()

	var req queue.SendRequest
	err := app.decode(w, r, &req)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		app.observe("sqs_send", start, err)
		app.fail(w, r, failure, err)
		return
	}

	id, err := app.Queue.Send(r.Context(), req)
	app.observe("sqs_send", start, err)
	if err != nil {
		app.fail(w, r, failure, err)
		return
	}

	app.respond(w, r, envelope.Fields{
		"messageId": id,
		"queueName": req.QueueName,
	})
}

func (app *App) publish(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to publish message to SNS topic"
	start := time.Now()

	var req topic.PublishRequest
	err := app.decode(w, r, &req)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		app.observe("sns_publish", start, err)
		app.fail(w, r, failure, err)
		return
	}

	id, err := app.Topic.Publish(r.Context(), req)
	app.observe("sns_publish", start, err)
	if err != nil {
		app.fail(w, r, failure, err)
		return
	}

	app.respond(w, r, envelope.Fields{
		"messageId": id,
		"topicArn":  req.TopicArn,
	})
}

func (app *App) topicExists(w http.ResponseWriter, r *http.Request) {
	arn := pathParam(r, "topicArn")
	res := app.Topic.Probe(r.Context(), arn)
	app.recordProbe(r, "sns_topic", arn, res)

	app.respond(w, r, envelope.Fields{
		"topicArn": arn,
		"exists":   res.Exists(),
	})
}
