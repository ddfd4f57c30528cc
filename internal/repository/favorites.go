package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"events-assistant/internal/domain"
)

const (
	pkPrefixUser = "USER#"
	skPrefixFav  = "FAV#"
)

// dynamodbAPI is the minimal DynamoDB interface required by Favorites.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Favorites stores each user's saved locations in a single DynamoDB table,
// one item per (user, place).
type Favorites struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a Favorites store on tableName.
func New(api dynamodbAPI, tableName string) (*Favorites, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Favorites{api: api, tableName: tableName, now: time.Now}, nil
}

func userPK(userID string) string {
	return pkPrefixUser + userID
}

func favSK(placeID string) string {
	return skPrefixFav + placeID
}

func validateIDs(userID, placeID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(placeID) == "" {
		return errors.New("place id is required")
	}
	return nil
}

// Add saves loc for userID, replacing an earlier save of the same place.
func (f *Favorites) Add(ctx context.Context, userID string, loc domain.Location) error {
	if err := validateIDs(userID, loc.PlaceID); err != nil {
		return fmt.Errorf("repository: Add: %w", err)
	}
	fav := domain.Favorite{
		UserID:   userID,
		Location: loc,
		SavedAt:  f.now().UTC().Format(time.RFC3339),
	}
	_, err := f.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(f.tableName),
		Item:      favoriteItem(fav),
	})
	if err != nil {
		return fmt.Errorf("repository: Add: %w", err)
	}
	return nil
}

// Remove deletes a saved place. Removing a place that isn't saved is not an
// error.
func (f *Favorites) Remove(ctx context.Context, userID, placeID string) error {
	if err := validateIDs(userID, placeID); err != nil {
		return fmt.Errorf("repository: Remove: %w", err)
	}
	_, err := f.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(f.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: favSK(placeID)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Remove: %w", err)
	}
	return nil
}

// List returns every saved place for userID, following query pagination.
func (f *Favorites) List(ctx context.Context, userID string) ([]domain.Location, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("repository: List: user id is required")
	}

	out := []domain.Location{}
	var startKey map[string]types.AttributeValue
	for {
		res, err := f.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(f.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixFav},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: List query: %w", err)
		}
		if res == nil {
			break
		}
		for _, item := range res.Items {
			fav, err := itemToFavorite(item)
			if err != nil {
				return nil, fmt.Errorf("repository: List unmarshal: %w", err)
			}
			out = append(out, fav.Location)
		}
		if len(res.LastEvaluatedKey) == 0 {
			break
		}
		startKey = res.LastEvaluatedKey
	}
	return out, nil
}

func favoriteItem(fav domain.Favorite) map[string]types.AttributeValue {
	loc := fav.Location
	item := map[string]types.AttributeValue{
		"PK":      &types.AttributeValueMemberS{Value: userPK(fav.UserID)},
		"SK":      &types.AttributeValueMemberS{Value: favSK(loc.PlaceID)},
		"userId":  &types.AttributeValueMemberS{Value: fav.UserID},
		"placeId": &types.AttributeValueMemberS{Value: loc.PlaceID},
		"name":    &types.AttributeValueMemberS{Value: loc.Name},
		"address": &types.AttributeValueMemberS{Value: loc.Address},
		"lat":     numAttr(loc.Lat),
		"lng":     numAttr(loc.Lng),
		"rating":  numAttr(loc.Rating),
		"savedAt": &types.AttributeValueMemberS{Value: fav.SavedAt},
	}
	if len(loc.Types) > 0 {
		list := make([]types.AttributeValue, len(loc.Types))
		for i, t := range loc.Types {
			list[i] = &types.AttributeValueMemberS{Value: t}
		}
		item["types"] = &types.AttributeValueMemberL{Value: list}
	}
	return item
}

func itemToFavorite(item map[string]types.AttributeValue) (domain.Favorite, error) {
	userID, err := strAttr(item, "userId")
	if err != nil {
		return domain.Favorite{}, err
	}
	placeID, err := strAttr(item, "placeId")
	if err != nil {
		return domain.Favorite{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Favorite{}, err
	}
	address, _ := strAttr(item, "address") // allow empty
	savedAt, _ := strAttr(item, "savedAt")
	lat, err := floatAttr(item, "lat")
	if err != nil {
		return domain.Favorite{}, err
	}
	lng, err := floatAttr(item, "lng")
	if err != nil {
		return domain.Favorite{}, err
	}
	rating, _ := floatAttr(item, "rating")

	var placeTypes []string
	if l, ok := item["types"].(*types.AttributeValueMemberL); ok {
		for _, v := range l.Value {
			if s, ok := v.(*types.AttributeValueMemberS); ok {
				placeTypes = append(placeTypes, s.Value)
			}
		}
	}

	return domain.Favorite{
		UserID:  userID,
		SavedAt: savedAt,
		Location: domain.Location{
			PlaceID: placeID,
			Name:    name,
			Address: address,
			Lat:     lat,
			Lng:     lng,
			Rating:  rating,
			Types:   placeTypes,
		},
	}, nil
}

func numAttr(f float64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
