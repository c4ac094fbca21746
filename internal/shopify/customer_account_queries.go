package shopify

const addressFields = `
  id
  formatted
  firstName
  lastName
  company
  address1
  address2
  city
  province
  zip
  country
  phone
`

const queryCustomer = `
query GetCustomer {
  customer {
    id
    firstName
    lastName
    displayName
    emailAddress { emailAddress }
    phoneNumber { phoneNumber }
    defaultAddress {` + addressFields + `}
  }
}
`

const queryCustomerAddresses = `
query GetCustomerAddresses {
  customer {
    id
    addresses(first: 50) {
      edges {
        node {` + addressFields + `  isDefaultShippingAddress
        }
      }
    }
  }
}
`

const orderLineFields = `
  id
  title
  quantity
  originalTotalPrice { amount currencyCode }
  variant {
    id
    title
    image { ` + imageFields + ` }
  }
`

const queryCustomerOrders = `
query GetCustomerOrders($first: Int!, $after: String) {
  customer {
    id
    orders(first: $first, after: $after) {
      ` + pageInfoFields + `
      edges {
        node {
          id
          name
          orderNumber
          processedAt
          financialStatus
          fulfillmentStatus
          currentTotalPrice { amount currencyCode }
          lineItems(first: 10) { edges { node {` + orderLineFields + `} } }
        }
      }
    }
  }
}
`

const queryCustomerOrder = `
query GetCustomerOrder($orderId: ID!) {
  customer {
    id
    order(id: $orderId) {
      id
      name
      orderNumber
      processedAt
      financialStatus
      fulfillmentStatus
      currentTotalPrice { amount currencyCode }
      shippingAddress {` + addressFields + `}
      lineItems(first: 50) { edges { node {` + orderLineFields + `} } }
    }
  }
}
`

const caUserErrorFields = `userErrors { field message }`

const mutationCustomerUpdate = `
mutation UpdateCustomer($input: CustomerUpdateInput!) {
  customerUpdate(input: $input) {
    customer { id firstName lastName displayName emailAddress { emailAddress } }
    ` + caUserErrorFields + `
  }
}
`

const mutationAddressCreate = `
mutation CreateAddress($address: MailingAddressInput!) {
  customerAddressCreate(address: $address) {
    customerAddress {` + addressFields + `}
    ` + caUserErrorFields + `
  }
}
`

const mutationAddressUpdate = `
mutation UpdateAddress($id: ID!, $address: MailingAddressInput!) {
  customerAddressUpdate(id: $id, address: $address) {
    customerAddress {` + addressFields + `}
    ` + caUserErrorFields + `
  }
}
`

const mutationAddressDelete = `
mutation DeleteAddress($id: ID!) {
  customerAddressDelete(id: $id) {
    deletedCustomerAddressId
    ` + caUserErrorFields + `
  }
}
`

const mutationDefaultAddressUpdate = `
mutation SetDefaultAddress($addressId: ID!) {
  customerDefaultAddressUpdate(addressId: $addressId) {
    customer { id }
    ` + caUserErrorFields + `
  }
}
`
