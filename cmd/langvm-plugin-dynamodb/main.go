// Command langvm-plugin-dynamodb is the standalone plugin process the
// dynamo_* natives talk to over newline-delimited JSON-RPC on stdin/
// stdout, adapted line-for-line in spirit from estevaofon-noxy's
// cmd/noxy-plugin-dynamodb/main.go: one aws-sdk-go-v2 dynamodb.Client per
// connect call, keyed by a uuid the caller holds onto as a handle.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
)

type request struct {
	ID     string        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

var (
	clients     = make(map[string]*dynamodb.Client)
	clientsLock sync.Mutex
)

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	encoder := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = encoder.Encode(response{Error: fmt.Sprintf("parse error: %v", err)})
			continue
		}

		result, err := handle(req)
		resp := response{ID: req.ID, Result: result}
		if err != nil {
			resp.Error = err.Error()
		}
		if err := encoder.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "langvm-plugin-dynamodb: failed to encode response: %v\n", err)
		}
	}
}

func handle(req request) (interface{}, error) {
	switch req.Method {
	case "connect":
		return handleConnect(req.Params)
	case "put_item":
		return handlePutItem(req.Params)
	case "get_item":
		return handleGetItem(req.Params)
	case "delete_item":
		return handleDeleteItem(req.Params)
	case "scan":
		return handleScan(req.Params)
	case "query":
		return handleQuery(req.Params)
	default:
		return nil, fmt.Errorf("unknown method: %s", req.Method)
	}
}

func handleConnect(params []interface{}) (interface{}, error) {
	region := "us-east-1"
	if len(params) >= 1 {
		if r, ok := params[0].(string); ok && r != "" {
			region = r
		}
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg)
	clientID := uuid.New().String()

	clientsLock.Lock()
	clients[clientID] = client
	clientsLock.Unlock()

	return clientID, nil
}

func getClient(id string) *dynamodb.Client {
	clientsLock.Lock()
	defer clientsLock.Unlock()
	return clients[id]
}

// stringParam pulls positional string arguments out of the flat
// params array the natives layer sends — client_id, table, and one or two
// scalar key/value strings, since the VM's object.Value has no map kind
// to carry a full DynamoDB item through.
func stringParam(params []interface{}, i int) (string, error) {
	if i >= len(params) {
		return "", fmt.Errorf("missing parameter %d", i)
	}
	s, ok := params[i].(string)
	if !ok {
		return "", fmt.Errorf("parameter %d: expected string", i)
	}
	return s, nil
}

func handlePutItem(params []interface{}) (interface{}, error) {
	clientID, err := stringParam(params, 0)
	if err != nil {
		return nil, err
	}
	table, err := stringParam(params, 1)
	if err != nil {
		return nil, err
	}
	key, err := stringParam(params, 2)
	if err != nil {
		return nil, err
	}
	value, err := stringParam(params, 3)
	if err != nil {
		return nil, err
	}

	client := getClient(clientID)
	if client == nil {
		return nil, fmt.Errorf("client not found: %s", clientID)
	}

	av, err := attributevalue.MarshalMap(map[string]interface{}{"id": key, "value": value})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = client.PutItem(context.TODO(), &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      av,
	})
	if err != nil {
		return nil, err
	}
	return true, nil
}

func handleGetItem(params []interface{}) (interface{}, error) {
	clientID, err := stringParam(params, 0)
	if err != nil {
		return nil, err
	}
	table, err := stringParam(params, 1)
	if err != nil {
		return nil, err
	}
	key, err := stringParam(params, 2)
	if err != nil {
		return nil, err
	}

	client := getClient(clientID)
	if client == nil {
		return nil, fmt.Errorf("client not found: %s", clientID)
	}

	avKey, err := attributevalue.MarshalMap(map[string]interface{}{"id": key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	out, err := client.GetItem(context.TODO(), &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       avKey,
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}

	var item struct {
		Value string `dynamodbav:"value"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item.Value, nil
}

func handleDeleteItem(params []interface{}) (interface{}, error) {
	clientID, err := stringParam(params, 0)
	if err != nil {
		return nil, err
	}
	table, err := stringParam(params, 1)
	if err != nil {
		return nil, err
	}
	key, err := stringParam(params, 2)
	if err != nil {
		return nil, err
	}

	client := getClient(clientID)
	if client == nil {
		return nil, fmt.Errorf("client not found: %s", clientID)
	}

	avKey, err := attributevalue.MarshalMap(map[string]interface{}{"id": key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	_, err = client.DeleteItem(context.TODO(), &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       avKey,
	})
	if err != nil {
		return nil, err
	}
	return true, nil
}

func handleScan(params []interface{}) (interface{}, error) {
	clientID, err := stringParam(params, 0)
	if err != nil {
		return nil, err
	}
	table, err := stringParam(params, 1)
	if err != nil {
		return nil, err
	}

	client := getClient(clientID)
	if client == nil {
		return nil, fmt.Errorf("client not found: %s", clientID)
	}

	out, err := client.Scan(context.TODO(), &dynamodb.ScanInput{TableName: aws.String(table)})
	if err != nil {
		return nil, err
	}

	var items []struct {
		ID    string `dynamodbav:"id"`
		Value string `dynamodbav:"value"`
	}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}

	pairs := make([]interface{}, len(items))
	for i, it := range items {
		pairs[i] = it.ID + "=" + it.Value
	}
	return pairs, nil
}

func handleQuery(params []interface{}) (interface{}, error) {
	clientID, err := stringParam(params, 0)
	if err != nil {
		return nil, err
	}
	table, err := stringParam(params, 1)
	if err != nil {
		return nil, err
	}
	key, err := stringParam(params, 2)
	if err != nil {
		return nil, err
	}

	client := getClient(clientID)
	if client == nil {
		return nil, fmt.Errorf("client not found: %s", clientID)
	}

	avVals, err := attributevalue.MarshalMap(map[string]interface{}{":id": key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query values: %w", err)
	}

	out, err := client.Query(context.TODO(), &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String("id = :id"),
		ExpressionAttributeValues: avVals,
	})
	if err != nil {
		return nil, err
	}

	var items []struct {
		Value string `dynamodbav:"value"`
	}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}

	values := make([]interface{}, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return values, nil
}
