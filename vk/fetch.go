package vk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitriikuleshov/vkscope/account"
)

// profileFields is the users.get field set for a full profile fetch.
const profileFields = "first_name, last_name, bdate, country, city, activities, " +
	"books, education, games, interests, movies, music, personal, " +
	"relatives, counters, photo_50"

type userRecord struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Deactivated string `json:"deactivated"`
	Bdate       string `json:"bdate"`
	Country     *struct {
		Title string `json:"title"`
	} `json:"country"`
	City *struct {
		Title string `json:"title"`
	} `json:"city"`
	Interests      string `json:"interests"`
	Books          string `json:"books"`
	Games          string `json:"games"`
	Movies         string `json:"movies"`
	Activities     string `json:"activities"`
	Music          string `json:"music"`
	UniversityName string `json:"university_name"`
	FacultyName    string `json:"faculty_name"`
	EducationForm  string `json:"education_form"`
	Graduation     int    `json:"graduation"`
	Relatives      []struct {
		ID int64 `json:"id"`
	} `json:"relatives"`
	Counters *struct {
		Friends   int `json:"friends"`
		Followers int `json:"followers"`
	} `json:"counters"`
	Photo50 string `json:"photo_50"`
}

// Fetch retrieves a full profile. Privacy restrictions never fail the
// fetch: they degrade Friends, Subscriptions and PostDates to unknown
// together, and the base fields come through regardless. Only a failed
// identity lookup is an error; a missing or deactivated target surfaces
// as account.ErrProfileNotFound.
func (c *Client) Fetch(ctx context.Context, id account.ID) (*account.Profile, error) {
	raw, err := c.user(ctx, id, profileFields)
	if err != nil {
		return nil, err
	}

	p := &account.Profile{
		ID:         id,
		FirstName:  raw.FirstName,
		LastName:   raw.LastName,
		Birthday:   raw.Bdate,
		Interests:  raw.Interests,
		Books:      raw.Books,
		Games:      raw.Games,
		Movies:     raw.Movies,
		Activities: raw.Activities,
		Music:      raw.Music,
		Icon:       raw.Photo50,
		Friends:    account.Unknown[account.ID](),
		Subscriptions: account.Subscriptions{
			Users:  account.Unknown[account.ID](),
			Groups: account.Unknown[account.ID](),
		},
		PostDates: account.Unknown[int64](),
	}
	if raw.Country != nil {
		p.Country = raw.Country.Title
	}
	if raw.City != nil {
		p.City = raw.City.Title
	}
	if raw.UniversityName != "" || raw.FacultyName != "" || raw.EducationForm != "" || raw.Graduation != 0 {
		p.University = &account.University{
			Name:       raw.UniversityName,
			Faculty:    raw.FacultyName,
			Form:       raw.EducationForm,
			Graduation: raw.Graduation,
		}
	}
	for _, rel := range raw.Relatives {
		p.Relatives = append(p.Relatives, account.ID(rel.ID))
	}
	if raw.Counters != nil {
		p.FriendsCount = raw.Counters.Friends
		p.FollowersCount = raw.Counters.Followers
	}

	// Friends, subscriptions and recent wall degrade together: a privacy
	// block on one of them hides the others too, so a partial view would
	// misrepresent the account.
	friends, ferr := c.Friends(ctx, id, 0)
	subs, serr := c.subscriptions(ctx, id)
	posts, perr := c.wallDates(ctx, id)
	if ferr != nil || serr != nil || perr != nil {
		c.logger.DebugContext(ctx, "profile activity fields unavailable",
			"id", id, "friends", ferr, "subscriptions", serr, "wall", perr)
		return p, nil
	}

	p.Friends = account.Known(friends)
	p.Subscriptions = subs
	p.PostDates = account.Known(posts)
	return p, nil
}

// FetchShort retrieves only id, name and icon. Used when listing many
// accounts cheaply.
func (c *Client) FetchShort(ctx context.Context, id account.ID) (account.Summary, error) {
	raw, err := c.user(ctx, id, "first_name, last_name, photo_50")
	if err != nil {
		return account.Summary{}, err
	}
	return account.Summary{
		ID:        id,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Icon:      raw.Photo50,
	}, nil
}

// Users retrieves short records for a batch of user ids in one call.
func (c *Client) Users(ctx context.Context, ids []account.ID) ([]account.Summary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("user_ids", joinIDs(ids))
	params.Set("fields", "first_name, last_name, photo_50")

	var raw []userRecord
	if err := c.call(ctx, "users.get", params, &raw); err != nil {
		return nil, err
	}

	summaries := make([]account.Summary, 0, len(raw))
	for _, u := range raw {
		summaries = append(summaries, account.Summary{
			ID:        account.ID(u.ID),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Icon:      u.Photo50,
		})
	}
	return summaries, nil
}

// Groups retrieves short records for a batch of communities. Ids may be
// passed in either sign; the API wants them positive.
func (c *Client) Groups(ctx context.Context, ids []account.ID) ([]account.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	positive := make([]account.ID, 0, len(ids))
	for _, id := range ids {
		if id < 0 {
			id = -id
		}
		positive = append(positive, id)
	}

	params := url.Values{}
	params.Set("group_ids", joinIDs(positive))

	var raw []struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		Photo50    string `json:"photo_50"`
	}
	if err := c.call(ctx, "groups.getById", params, &raw); err != nil {
		return nil, err
	}

	groups := make([]account.Group, 0, len(raw))
	for _, g := range raw {
		group := account.Group{
			ID:   account.ID(-g.ID),
			Name: g.Name,
			Icon: g.Photo50,
		}
		if g.ScreenName != "" {
			group.Link = "https://vk.com/" + g.ScreenName
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Friends returns the account's friend ids in the API's relevance
// ("hints") order. limit caps the list server-side; 0 means no cap.
func (c *Client) Friends(ctx context.Context, id account.ID, limit int) ([]account.ID, error) {
	params := url.Values{}
	params.Set("user_id", id.String())
	params.Set("order", "hints")
	if limit > 0 {
		params.Set("count", strconv.Itoa(limit))
	}

	var resp struct {
		Items []int64 `json:"items"`
	}
	if err := c.call(ctx, "friends.get", params, &resp); err != nil {
		return nil, err
	}
	return toIDs(resp.Items), nil
}

func (c *Client) subscriptions(ctx context.Context, id account.ID) (account.Subscriptions, error) {
	params := url.Values{}
	params.Set("user_id", id.String())

	var resp struct {
		Users struct {
			Items []int64 `json:"items"`
		} `json:"users"`
		Groups struct {
			Items []int64 `json:"items"`
		} `json:"groups"`
	}
	if err := c.call(ctx, "users.getSubscriptions", params, &resp); err != nil {
		return account.Subscriptions{
			Users:  account.Unknown[account.ID](),
			Groups: account.Unknown[account.ID](),
		}, err
	}
	return account.Subscriptions{
		Users:  account.Known(toIDs(resp.Users.Items)),
		Groups: account.Known(toIDs(resp.Groups.Items)),
	}, nil
}

// Wall returns up to count recent wall posts for the owner, newest first.
// The API caps count at 100.
func (c *Client) Wall(ctx context.Context, owner account.ID, count int) ([]Post, error) {
	if count <= 0 || count > pageSize {
		count = pageSize
	}
	params := url.Values{}
	params.Set("owner_id", owner.String())
	params.Set("count", strconv.Itoa(count))

	var resp struct {
		Items []struct {
			ID       int64  `json:"id"`
			Date     int64  `json:"date"`
			Text     string `json:"text"`
			Comments struct {
				Count int `json:"count"`
			} `json:"comments"`
		} `json:"items"`
	}
	if err := c.call(ctx, "wall.get", params, &resp); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(resp.Items))
	for _, item := range resp.Items {
		posts = append(posts, Post{
			ID:       item.ID,
			Owner:    owner,
			Date:     item.Date,
			Text:     item.Text,
			Comments: item.Comments.Count,
		})
	}
	return posts, nil
}

// Comments returns up to count comments under one wall post.
func (c *Client) Comments(ctx context.Context, owner account.ID, postID int64, count int) ([]Comment, error) {
	if count <= 0 || count > pageSize {
		count = pageSize
	}
	params := url.Values{}
	params.Set("owner_id", owner.String())
	params.Set("post_id", strconv.FormatInt(postID, 10))
	params.Set("count", strconv.Itoa(count))

	var resp struct {
		Items []struct {
			ID   int64  `json:"id"`
			From int64  `json:"from_id"`
			Date int64  `json:"date"`
			Text string `json:"text"`
		} `json:"items"`
	}
	if err := c.call(ctx, "wall.getComments", params, &resp); err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(resp.Items))
	for _, item := range resp.Items {
		comments = append(comments, Comment{
			ID:   item.ID,
			From: account.ID(item.From),
			Date: item.Date,
			Text: item.Text,
		})
	}
	return comments, nil
}

// user fetches one users.get record.
func (c *Client) user(ctx context.Context, id account.ID, fields string) (*userRecord, error) {
	params := url.Values{}
	params.Set("user_id", id.String())
	params.Set("fields", fields)

	// API errors carry their own sentinel mapping, not-found included;
	// only an empty record list needs wrapping here.
	var raw []userRecord
	if err := c.call(ctx, "users.get", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: id %d", account.ErrProfileNotFound, id)
	}
	return &raw[0], nil
}

func (c *Client) wallDates(ctx context.Context, id account.ID) ([]int64, error) {
	posts, err := c.Wall(ctx, id, pageSize)
	if err != nil {
		return nil, err
	}
	dates := make([]int64, 0, len(posts))
	for _, post := range posts {
		dates = append(dates, post.Date)
	}
	return dates, nil
}

func joinIDs(ids []account.ID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ",")
}

func toIDs(raw []int64) []account.ID {
	ids := make([]account.ID, 0, len(raw))
	for _, n := range raw {
		ids = append(ids, account.ID(n))
	}
	return ids
}
