package schema

import (
	"math"
	"strconv"

	"github.com/revittco/anylist-mcp/internal/anylist"
)

// ListTarget identifies a list by id or by name.
type ListTarget struct {
	ListID   Field[string] `json:"listId"`
	ListName Field[string] `json:"listName"`
}

func (t ListTarget) check(c *checker) {
	nonEmpty(c, "listId", t.ListID)
	nonEmpty(c, "listName", t.ListName)
	c.exactlyOne("listId", t.ListID.State() == Set, "listName", t.ListName.State() == Set)
}

// ItemTarget identifies an item by id or by name.
type ItemTarget struct {
	ItemID   Field[string] `json:"itemId"`
	ItemName Field[string] `json:"itemName"`
}

func (t ItemTarget) check(c *checker) {
	nonEmpty(c, "itemId", t.ItemID)
	nonEmpty(c, "itemName", t.ItemName)
	c.exactlyOne("itemId", t.ItemID.State() == Set, "itemName", t.ItemName.State() == Set)
}

// RecipeTarget identifies a recipe by id or by name.
type RecipeTarget struct {
	RecipeID   Field[string] `json:"recipeId"`
	RecipeName Field[string] `json:"recipeName"`
}

func (t RecipeTarget) check(c *checker) {
	nonEmpty(c, "recipeId", t.RecipeID)
	nonEmpty(c, "recipeName", t.RecipeName)
	c.exactlyOne("recipeId", t.RecipeID.State() == Set, "recipeName", t.RecipeName.State() == Set)
}

// Empty accepts only an empty object.
type Empty struct{}

func (*Empty) Validate() error { return nil }

type ListItemsInput struct {
	ListTarget
}

func (in *ListItemsInput) Validate() error {
	var c checker
	in.ListTarget.check(&c)
	return c.err()
}

type AddItemInput struct {
	ListTarget
	Name          string          `json:"name"`
	Quantity      Field[Quantity] `json:"quantity"`
	Details       Field[string]   `json:"details"`
	Checked       Field[bool]     `json:"checked"`
	ReuseExisting Field[bool]     `json:"reuseExisting"`
}

func (in *AddItemInput) Validate() error {
	var c checker
	in.ListTarget.check(&c)
	required(&c, "name", in.Name)
	notNull(&c, "quantity", in.Quantity)
	notNull(&c, "details", in.Details)
	notNull(&c, "checked", in.Checked)
	notNull(&c, "reuseExisting", in.ReuseExisting)
	return c.err()
}

type UpdateItemInput struct {
	ListTarget
	ItemTarget
	Name     Field[string]   `json:"name"`
	Quantity Field[Quantity] `json:"quantity"`
	Details  Field[string]   `json:"details"`
	Checked  Field[bool]     `json:"checked"`
}

func (in *UpdateItemInput) Validate() error {
	var c checker
	in.ListTarget.check(&c)
	in.ItemTarget.check(&c)
	nonEmpty(&c, "name", in.Name)
	notNull(&c, "checked", in.Checked)
	c.atLeastOne(in.Name.Present(), in.Quantity.Present(), in.Details.Present(), in.Checked.Present())
	return c.err()
}

type RemoveItemInput struct {
	ListTarget
	ItemTarget
}

func (in *RemoveItemInput) Validate() error {
	var c checker
	in.ListTarget.check(&c)
	in.ItemTarget.check(&c)
	return c.err()
}

type UncheckAllInput struct {
	ListTarget
}

func (in *UncheckAllInput) Validate() error {
	var c checker
	in.ListTarget.check(&c)
	return c.err()
}

type ListRecipesInput struct {
	Name  Field[string]  `json:"name"`
	Limit Field[float64] `json:"limit"`
}

func (in *ListRecipesInput) Validate() error {
	var c checker
	nonEmpty(&c, "name", in.Name)
	notNull(&c, "limit", in.Limit)
	if v, ok := in.Limit.Get(); ok && (v < 0 || v != math.Trunc(v)) {
		c.addf("limit: must be a non-negative integer")
	}
	return c.err()
}

type GetRecipeInput struct {
	RecipeTarget
}

func (in *GetRecipeInput) Validate() error {
	var c checker
	in.RecipeTarget.check(&c)
	return c.err()
}

// IngredientInput is one ingredient line in recipe create/update.
type IngredientInput struct {
	RawIngredient Field[string]   `json:"rawIngredient"`
	Name          Field[string]   `json:"name"`
	Quantity      Field[Quantity] `json:"quantity"`
	Note          Field[string]   `json:"note"`
}

func (in IngredientInput) check(c *checker, prefix string) {
	notNull(c, prefix+".rawIngredient", in.RawIngredient)
	notNull(c, prefix+".name", in.Name)
	notNull(c, prefix+".quantity", in.Quantity)
	notNull(c, prefix+".note", in.Note)
}

// Ingredient converts the input to the domain type.
func (in IngredientInput) Ingredient() anylist.Ingredient {
	q, _ := in.Quantity.Get()
	return anylist.Ingredient{
		RawIngredient: in.RawIngredient.Or(""),
		Name:          in.Name.Or(""),
		Quantity:      string(q),
		Note:          in.Note.Or(""),
	}
}

// Ingredients converts a slice of inputs to domain ingredients.
func Ingredients(in []IngredientInput) []anylist.Ingredient {
	out := make([]anylist.Ingredient, len(in))
	for i, ing := range in {
		out[i] = ing.Ingredient()
	}
	return out
}

func checkIngredients(c *checker, f Field[[]IngredientInput]) {
	items, _ := f.Get()
	for i, ing := range items {
		ing.check(c, "ingredients."+strconv.Itoa(i))
	}
}

// maxSafeInteger is the largest integer a JSON number carries exactly.
const maxSafeInteger = 1<<53 - 1

func checkInteger(c *checker, name string, f Field[float64]) {
	v, ok := f.Get()
	if !ok {
		return
	}
	switch {
	case v != math.Trunc(v):
		c.addf("%s: must be an integer", name)
	case math.Abs(v) > maxSafeInteger:
		c.addf("%s: must be a safe integer", name)
	}
}

type CreateRecipeInput struct {
	Name             string                   `json:"name"`
	Note             Field[string]            `json:"note"`
	PreparationSteps Field[[]string]          `json:"preparationSteps"`
	Servings         Field[string]            `json:"servings"`
	SourceName       Field[string]            `json:"sourceName"`
	SourceURL        Field[string]            `json:"sourceUrl"`
	ScaleFactor      Field[float64]           `json:"scaleFactor"`
	Rating           Field[float64]           `json:"rating"`
	Ingredients      Field[[]IngredientInput] `json:"ingredients"`
	NutritionalInfo  Field[string]            `json:"nutritionalInfo"`
	CookTime         Field[float64]           `json:"cookTime"`
	PrepTime         Field[float64]           `json:"prepTime"`
}

func (in *CreateRecipeInput) Validate() error {
	var c checker
	required(&c, "name", in.Name)
	notNull(&c, "note", in.Note)
	notNull(&c, "preparationSteps", in.PreparationSteps)
	notNull(&c, "servings", in.Servings)
	notNull(&c, "sourceName", in.SourceName)
	notNull(&c, "sourceUrl", in.SourceURL)
	notNull(&c, "scaleFactor", in.ScaleFactor)
	notNull(&c, "rating", in.Rating)
	notNull(&c, "ingredients", in.Ingredients)
	notNull(&c, "nutritionalInfo", in.NutritionalInfo)
	notNull(&c, "cookTime", in.CookTime)
	notNull(&c, "prepTime", in.PrepTime)
	checkIngredients(&c, in.Ingredients)
	checkInteger(&c, "cookTime", in.CookTime)
	checkInteger(&c, "prepTime", in.PrepTime)
	return c.err()
}

type UpdateRecipeInput struct {
	RecipeTarget
	Name             Field[string]            `json:"name"`
	Note             Field[string]            `json:"note"`
	PreparationSteps Field[[]string]          `json:"preparationSteps"`
	Servings         Field[string]            `json:"servings"`
	SourceName       Field[string]            `json:"sourceName"`
	SourceURL        Field[string]            `json:"sourceUrl"`
	ScaleFactor      Field[float64]           `json:"scaleFactor"`
	Rating           Field[float64]           `json:"rating"`
	Ingredients      Field[[]IngredientInput] `json:"ingredients"`
	NutritionalInfo  Field[string]            `json:"nutritionalInfo"`
	CookTime         Field[float64]           `json:"cookTime"`
	PrepTime         Field[float64]           `json:"prepTime"`
}

func (in *UpdateRecipeInput) Validate() error {
	var c checker
	in.RecipeTarget.check(&c)
	nonEmpty(&c, "name", in.Name)
	checkIngredients(&c, in.Ingredients)
	checkInteger(&c, "cookTime", in.CookTime)
	checkInteger(&c, "prepTime", in.PrepTime)
	c.atLeastOne(
		in.Name.Present(), in.Note.Present(), in.PreparationSteps.Present(),
		in.Servings.Present(), in.SourceName.Present(), in.SourceURL.Present(),
		in.ScaleFactor.Present(), in.Rating.Present(), in.Ingredients.Present(),
		in.NutritionalInfo.Present(), in.CookTime.Present(), in.PrepTime.Present(),
	)
	return c.err()
}

type DeleteRecipeInput struct {
	RecipeTarget
}

func (in *DeleteRecipeInput) Validate() error {
	var c checker
	in.RecipeTarget.check(&c)
	return c.err()
}

type MealPlanEventsInput struct {
	StartDate Field[Date] `json:"startDate"`
	EndDate   Field[Date] `json:"endDate"`
}

func (in *MealPlanEventsInput) Validate() error {
	var c checker
	for _, f := range []struct {
		name string
		v    Field[Date]
	}{{"startDate", in.StartDate}, {"endDate", in.EndDate}} {
		notNull(&c, f.name, f.v)
		if d, ok := f.v.Get(); ok {
			checkDate(&c, f.name, d)
		}
	}
	return c.err()
}

type CreateMealPlanEventInput struct {
	Date              Date           `json:"date"`
	Title             Field[string]  `json:"title"`
	Details           Field[string]  `json:"details"`
	RecipeID          Field[string]  `json:"recipeId"`
	LabelID           Field[string]  `json:"labelId"`
	RecipeScaleFactor Field[float64] `json:"recipeScaleFactor"`
}

func (in *CreateMealPlanEventInput) Validate() error {
	var c checker
	if in.Date == "" {
		c.addf("date: Required")
	} else {
		checkDate(&c, "date", in.Date)
	}
	notNull(&c, "title", in.Title)
	notNull(&c, "details", in.Details)
	notNull(&c, "recipeId", in.RecipeID)
	notNull(&c, "labelId", in.LabelID)
	notNull(&c, "recipeScaleFactor", in.RecipeScaleFactor)
	return c.err()
}

type DeleteMealPlanEventInput struct {
	EventID string `json:"eventId"`
}

func (in *DeleteMealPlanEventInput) Validate() error {
	var c checker
	required(&c, "eventId", in.EventID)
	return c.err()
}
