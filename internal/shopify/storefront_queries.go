package shopify

const imageFields = `id url altText width height`

const productFragment = `
fragment ProductFields on Product {
  id
  title
  handle
  description
  descriptionHtml
  availableForSale
  priceRange {
    minVariantPrice { amount currencyCode }
    maxVariantPrice { amount currencyCode }
  }
  images(first: 10) { edges { node { ` + imageFields + ` } } }
  variants(first: 100) {
    edges {
      node {
        id
        title
        availableForSale
        price { amount currencyCode }
        compareAtPrice { amount currencyCode }
        selectedOptions { name value }
      }
    }
  }
}
`

const cartFragment = `
fragment CartFields on Cart {
  id
  checkoutUrl
  cost {
    subtotalAmount { amount currencyCode }
    totalAmount { amount currencyCode }
    totalTaxAmount { amount currencyCode }
  }
  lines(first: 100) {
    edges {
      node {
        id
        quantity
        merchandise {
          ... on ProductVariant {
            id
            title
            price { amount currencyCode }
            product {
              title
              handle
              images(first: 1) { edges { node { ` + imageFields + ` } } }
            }
          }
        }
      }
    }
  }
}
`

const pageInfoFields = `pageInfo { hasNextPage hasPreviousPage startCursor endCursor }`

const queryProducts = `
query GetProducts($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    ` + pageInfoFields + `
    edges { node { ...ProductFields } }
  }
}
` + productFragment

const queryProductByHandle = `
query GetProductByHandle($handle: String!) {
  product(handle: $handle) { ...ProductFields }
}
` + productFragment

const querySearchProducts = `
query SearchProducts($query: String!, $first: Int!) {
  products(first: $first, query: $query) {
    ` + pageInfoFields + `
    edges { node { ...ProductFields } }
  }
}
` + productFragment

const queryCollections = `
query GetCollections($first: Int!) {
  collections(first: $first) {
    edges {
      node {
        id
        title
        handle
        description
        image { ` + imageFields + ` }
      }
    }
  }
}
`

const queryCollectionByHandle = `
query GetCollectionByHandle($handle: String!, $first: Int!, $after: String) {
  collection(handle: $handle) {
    id
    title
    handle
    description
    image { ` + imageFields + ` }
    products(first: $first, after: $after) {
      ` + pageInfoFields + `
      edges { node { ...ProductFields } }
    }
  }
}
` + productFragment

const queryCart = `
query GetCart($cartId: ID!) {
  cart(id: $cartId) { ...CartFields }
}
` + cartFragment

const userErrorFields = `userErrors { code field message }`

const mutationCartCreate = `
mutation cartCreate($input: CartInput) {
  cartCreate(input: $input) {
    cart { ...CartFields }
    ` + userErrorFields + `
  }
}
` + cartFragment

const mutationCartLinesAdd = `
mutation cartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart { ...CartFields }
    ` + userErrorFields + `
  }
}
` + cartFragment

const mutationCartLinesUpdate = `
mutation cartLinesUpdate($cartId: ID!, $lines: [CartLineUpdateInput!]!) {
  cartLinesUpdate(cartId: $cartId, lines: $lines) {
    cart { ...CartFields }
    ` + userErrorFields + `
  }
}
` + cartFragment

const mutationCartLinesRemove = `
mutation cartLinesRemove($cartId: ID!, $lineIds: [ID!]!) {
  cartLinesRemove(cartId: $cartId, lineIds: $lineIds) {
    cart { ...CartFields }
    ` + userErrorFields + `
  }
}
` + cartFragment

// Classic customer accounts.

const customerUserErrorFields = `customerUserErrors { code field message }`

const mutationCustomerAccessTokenCreate = `
mutation customerAccessTokenCreate($input: CustomerAccessTokenCreateInput!) {
  customerAccessTokenCreate(input: $input) {
    customerAccessToken { accessToken expiresAt }
    ` + customerUserErrorFields + `
  }
}
`

const mutationCustomerCreate = `
mutation customerCreate($input: CustomerCreateInput!) {
  customerCreate(input: $input) {
    customer { id email firstName lastName }
    ` + customerUserErrorFields + `
  }
}
`

const mutationCustomerAccessTokenRenew = `
mutation customerAccessTokenRenew($customerAccessToken: String!) {
  customerAccessTokenRenew(customerAccessToken: $customerAccessToken) {
    customerAccessToken { accessToken expiresAt }
    userErrors { field message }
  }
}
`

const mutationCustomerRecover = `
mutation customerRecover($email: String!) {
  customerRecover(email: $email) {
    ` + customerUserErrorFields + `
  }
}
`

const mutationCustomerReset = `
mutation customerReset($id: ID!, $input: CustomerResetInput!) {
  customerReset(id: $id, input: $input) {
    customer { id }
    customerAccessToken { accessToken expiresAt }
    ` + customerUserErrorFields + `
  }
}
`
