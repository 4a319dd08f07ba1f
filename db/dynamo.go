package db

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

const partitionKey = "PK"

// Dynamo stores one item per project, keyed by project id under PK.
type Dynamo struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

type DynamoConfig struct {
	Endpoint string
	Region   string
	Table    string
}

func OpenDynamo(cfg DynamoConfig) (*Dynamo, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create a DynamoDB session")
	}
	return NewDynamo(dynamodb.New(sess), cfg.Table), nil
}

func NewDynamo(client dynamodbiface.DynamoDBAPI, table string) *Dynamo {
	return &Dynamo{client: client, table: table}
}

func key(id string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		partitionKey: {S: aws.String(id)},
	}
}

func (d *Dynamo) Get(ctx context.Context, id string) (model.Project, error) {
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return model.Project{}, dynamoError(err, "could not read project")
	}
	if len(out.Item) == 0 {
		return model.Project{}, ErrNotFound
	}
	return decodeItem(out.Item)
}

func (d *Dynamo) Put(ctx context.Context, p model.Project) error {
	item, err := dynamodbattribute.MarshalMap(p)
	if err != nil {
		return errors.Wrap(err, "could not encode project")
	}
	item[partitionKey] = &dynamodb.AttributeValue{S: aws.String(p.ID)}
	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	return dynamoError(err, "could not write project")
}

func (d *Dynamo) Delete(ctx context.Context, id string) error {
	out, err := d.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.table),
		Key:          key(id),
		ReturnValues: aws.String(dynamodb.ReturnValueAllOld),
	})
	if err != nil {
		return dynamoError(err, "could not delete project")
	}
	if len(out.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Dynamo) List(ctx context.Context) ([]model.Project, error) {
	res := []model.Project{}
	var decodeErr error
	err := d.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.table),
	}, func(page *dynamodb.ScanOutput, _ bool) bool {
		for _, item := range page.Items {
			p, err := decodeItem(item)
			if err != nil {
				decodeErr = err
				return false
			}
			res = append(res, p)
		}
		return true
	})
	if err != nil {
		return nil, dynamoError(err, "could not list projects")
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return res, nil
}

func (d *Dynamo) Close() error { return nil }

func decodeItem(item map[string]*dynamodb.AttributeValue) (model.Project, error) {
	var p model.Project
	if err := dynamodbattribute.UnmarshalMap(item, &p); err != nil {
		return model.Project{}, errors.Wrap(err, "corrupt project item")
	}
	if p.ID == "" && item[partitionKey] != nil && item[partitionKey].S != nil {
		p.ID = *item[partitionKey].S
	}
	return p, nil
}

// dynamoError marks throttling and connection failures as unavailable.
func dynamoError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) && (request.IsErrorThrottle(aerr) || request.IsErrorRetryable(aerr)) {
		return errors.Wrap(ErrUnavailable, err.Error())
	}
	return errors.Wrap(err, msg)
}
